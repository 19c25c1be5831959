package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"session-chat/internal/service"
)

// writeServiceError mapea errores del servicio a un shape estable
// {error, code}. El detalle interno solo va al log, nunca al cliente.
func writeServiceError(c *gin.Context, logger *zap.Logger, err error) {
	status, code, message := classifyServiceError(err)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	} else {
		logger.Warn("request rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}

	respondError(c, status, code, message)
}

func classifyServiceError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, service.ErrMissingMessage):
		return http.StatusBadRequest, "MissingMessage", err.Error()
	case errors.Is(err, service.ErrEmptyMessage):
		return http.StatusBadRequest, "EmptyMessage", err.Error()
	case errors.Is(err, service.ErrMessageTooLong):
		return http.StatusBadRequest, "MessageTooLong", err.Error()
	case errors.Is(err, service.ErrMissingSessionToken):
		return http.StatusBadRequest, "MissingSessionId", err.Error()
	case errors.Is(err, service.ErrBadSessionTokenFormat):
		return http.StatusBadRequest, "InvalidSessionIdFormat", err.Error()
	case errors.Is(err, service.ErrBadConversationIDFormat):
		return http.StatusBadRequest, "InvalidConversationIdFormat", err.Error()
	case errors.Is(err, service.ErrUnpairedImage):
		return http.StatusBadRequest, "InvalidImage", err.Error()
	case errors.Is(err, service.ErrSessionInvalid):
		return http.StatusUnauthorized, "SessionInvalid", "session is invalid or expired"
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, "SessionNotFound", "session not found"
	case errors.Is(err, service.ErrConversationNotFound):
		return http.StatusNotFound, "ConversationNotFound", "conversation not found"
	case errors.Is(err, service.ErrModelUnavailable):
		return http.StatusInternalServerError, "UpstreamError", "could not generate a reply"
	default:
		return http.StatusInternalServerError, "StorageError", "internal error"
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": message, "code": code})
}
