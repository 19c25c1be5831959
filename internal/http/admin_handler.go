package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"session-chat/internal/service"
)

// AdminHandler mantiene dependencias para el endpoint de limpieza programada.
type AdminHandler struct {
	logger   *zap.Logger
	sessions *service.SessionService
	secret   string
}

// NewAdminHandler crea una instancia de AdminHandler. Con secret vacío el
// endpoint queda deshabilitado y responde 503.
func NewAdminHandler(logger *zap.Logger, sessions *service.SessionService, secret string) *AdminHandler {
	return &AdminHandler{logger: logger, sessions: sessions, secret: secret}
}

// Cleanup maneja POST /cleanup: borra sesiones vencidas con cascada a sus
// conversaciones y mensajes. Idempotente y seguro de invocar concurrentemente.
func (h *AdminHandler) Cleanup(c *gin.Context) {
	if h.secret == "" {
		respondError(c, http.StatusServiceUnavailable, "CleanupDisabled", "cleanup is not configured")
		return
	}

	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		respondError(c, http.StatusUnauthorized, "Unauthenticated", "missing bearer credential")
		return
	}

	credential := strings.TrimSpace(header[len("Bearer "):])
	if subtle.ConstantTimeCompare([]byte(credential), []byte(h.secret)) != 1 {
		h.logger.Warn("cleanup credential mismatch", zap.String("client_ip", c.ClientIP()))
		respondError(c, http.StatusForbidden, "Unauthorized", "invalid bearer credential")
		return
	}

	count, err := h.sessions.CleanupExpired(c.Request.Context())
	if err != nil {
		h.logger.Error("cleanup failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "StorageError", "could not clean up sessions")
		return
	}

	h.logger.Info("cleanup finished", zap.Int64("deleted_count", count))
	c.JSON(http.StatusOK, gin.H{"deletedCount": count})
}
