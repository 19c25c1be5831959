package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache guarda token -> expiración para ahorrar lecturas a la base en
// la validación de sesión. Las sesiones nunca mutan salvo updated_at, así que
// la entrada cacheada solo necesita caducar junto con la sesión.
type SessionCache interface {
	Get(ctx context.Context, token string) (time.Time, bool)
	Set(ctx context.Context, token string, expiresAt time.Time)
}

type redisSessionCache struct {
	client redisCacher
	prefix string
}

type redisCacher interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// NewRedisSessionCache crea un cache opcional sobre Redis. Con client nil
// devuelve nil y el servicio de sesiones opera solo contra la base.
func NewRedisSessionCache(client *redis.Client) SessionCache {
	if client == nil {
		return nil
	}
	return &redisSessionCache{
		client: client,
		prefix: "sess:",
	}
}

// Get degrada en silencio: cualquier error de Redis cuenta como cache miss.
func (c *redisSessionCache) Get(ctx context.Context, token string) (time.Time, bool) {
	if c == nil || c.client == nil || token == "" {
		return time.Time{}, false
	}

	opCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	raw, err := c.client.Get(opCtx, c.prefix+token).Result()
	if err != nil {
		return time.Time{}, false
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return expiresAt, true
}

func (c *redisSessionCache) Set(ctx context.Context, token string, expiresAt time.Time) {
	if c == nil || c.client == nil || token == "" {
		return
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	// La entrada caduca junto con la sesión; si Redis falla, la validación
	// sigue funcionando contra la base.
	_ = c.client.Set(opCtx, c.prefix+token, expiresAt.UTC().Format(time.RFC3339Nano), ttl).Err()
}
