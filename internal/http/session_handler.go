package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"session-chat/internal/service"
)

// SessionHandler mantiene dependencias para endpoints de sesiones.
type SessionHandler struct {
	logger   *zap.Logger
	sessions *service.SessionService
}

// NewSessionHandler crea una instancia de SessionHandler con dependencias necesarias.
func NewSessionHandler(logger *zap.Logger, sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{logger: logger, sessions: sessions}
}

// CreateSession maneja POST /session.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	session, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "StorageError", "could not create session")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt.Format(time.RFC3339Nano),
	})
}

// GetSession maneja GET /session/:token y reporta el estado del token. No
// distingue inexistente de expirada más allá del texto del mensaje.
func (h *SessionHandler) GetSession(c *gin.Context) {
	token := c.Param("token")

	expiresAt, err := h.sessions.Validate(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"valid": false, "message": "session not found"})
		case errors.Is(err, service.ErrSessionExpired):
			c.JSON(http.StatusBadRequest, gin.H{"valid": false, "message": "session expired"})
		default:
			h.logger.Error("validate session failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "StorageError", "could not validate session")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":     true,
		"token":     token,
		"expiresAt": expiresAt.Format(time.RFC3339Nano),
	})
}
