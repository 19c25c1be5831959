package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"session-chat/internal/config"
)

// Pinger abstrae la verificación de conectividad del pool de base de datos.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler mantiene dependencias para el endpoint de salud.
type HealthHandler struct {
	logger *zap.Logger
	db     Pinger
	cfg    *config.Config
}

// NewHealthHandler crea una instancia de HealthHandler con dependencias necesarias.
func NewHealthHandler(logger *zap.Logger, db Pinger, cfg *config.Config) *HealthHandler {
	return &HealthHandler{logger: logger, db: db, cfg: cfg}
}

// Health maneja GET /health: reporta base de datos y configuración.
func (h *HealthHandler) Health(c *gin.Context) {
	database := "ok"
	configuration := "ok"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health db ping failed", zap.Error(err))
		database = "unreachable"
	}

	if h.cfg == nil || h.cfg.LLMAPIKey == "" || h.cfg.DatabaseURL == "" {
		configuration = "incomplete"
	}

	status := "ok"
	code := http.StatusOK
	if database != "ok" || configuration != "ok" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": gin.H{
			"database":      database,
			"configuration": configuration,
		},
	})
}
