package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"session-chat/internal/service"
)

// ChatHandler mantiene dependencias para los endpoints de chat e historial.
type ChatHandler struct {
	logger *zap.Logger
	chat   *service.ChatService
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chat *service.ChatService) *ChatHandler {
	return &ChatHandler{logger: logger, chat: chat}
}

// PostChat maneja POST /chat: un turno completo de conversación.
func (h *ChatHandler) PostChat(c *gin.Context) {
	var req struct {
		Message        string `json:"message"`
		SessionToken   string `json:"sessionToken"`
		ConversationID string `json:"conversationId"`
		Image          []byte `json:"image"`
		ImageMimeType  string `json:"imageMimeType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request body", zap.Error(err))
		respondError(c, http.StatusBadRequest, "ValidationError", "invalid request body")
		return
	}

	result, err := h.chat.HandleTurn(c.Request.Context(), service.TurnInput{
		Message:        req.Message,
		SessionToken:   req.SessionToken,
		ConversationID: req.ConversationID,
		ImageData:      req.Image,
		ImageMIME:      req.ImageMimeType,
	})
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"replyText":      result.ReplyText,
		"conversationId": result.ConversationID,
		"sessionToken":   result.SessionToken,
	})
}

// ListConversations maneja GET /conversations?sessionToken= y devuelve el
// historial de la sesión para reconexión del cliente.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	token := c.Query("sessionToken")

	histories, err := h.chat.History(c.Request.Context(), token)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	conversations := make([]gin.H, 0, len(histories))
	for _, history := range histories {
		messages := make([]gin.H, 0, len(history.Messages))
		for _, msg := range history.Messages {
			messages = append(messages, gin.H{
				"role":      msg.Role,
				"content":   msg.Content,
				"createdAt": msg.CreatedAt.Format(time.RFC3339Nano),
			})
		}
		conversations = append(conversations, gin.H{
			"id":        history.Conversation.ID,
			"createdAt": history.Conversation.CreatedAt.Format(time.RFC3339Nano),
			"updatedAt": history.Conversation.UpdatedAt.Format(time.RFC3339Nano),
			"messages":  messages,
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}
