package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message es un turno (usuario o asistente) dentro de una conversación.
// Append-only: nunca se muta ni se borra individualmente. La imagen es una
// extensión opcional del contenido; ImageData y ImageMIME van siempre juntos.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	ImageData      []byte    `json:"imageData,omitempty"`
	ImageMIME      string    `json:"imageMimeType,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
