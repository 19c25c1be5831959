package domain

import "time"

// Conversation es un hilo de mensajes propiedad de una única sesión.
type Conversation struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
