package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort        string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL     string `env:"DATABASE_URL,required"`
	LLMAPIKey       string `env:"LLM_API_KEY,required"`
	LLMBaseURL      string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel        string `env:"LLM_MODEL" envDefault:"gpt-5.1"`
	SessionTTLHours int    `env:"SESSION_TTL_HOURS" envDefault:"24"`
	CleanupSecret   string `env:"CLEANUP_SECRET"`
	RedisAddr       string `env:"REDIS_ADDR"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
// Un TTL de sesión no positivo es error fatal de arranque, no de request.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.SessionTTLHours <= 0 {
		return nil, fmt.Errorf("SESSION_TTL_HOURS must be a positive number, got %d", cfg.SessionTTLHours)
	}
	return &cfg, nil
}

// SessionTTL devuelve el tiempo de vida configurado para las sesiones.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}
