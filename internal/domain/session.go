package domain

import "time"

// Session es la identidad anónima y temporal de un cliente. El token es una
// capability: quien lo presenta actúa como la sesión.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
