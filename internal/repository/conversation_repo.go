package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"session-chat/internal/domain"
)

// ConversationRepository define el contrato de persistencia para conversaciones.
type ConversationRepository interface {
	Create(ctx context.Context, conversation domain.Conversation) error
	GetOwned(ctx context.Context, id, sessionID string) (domain.Conversation, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.Conversation, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

// PgConversationRepository implementa ConversationRepository usando pgxpool.
type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

func (r *PgConversationRepository) Create(ctx context.Context, conversation domain.Conversation) error {
	const query = `
		INSERT INTO conversations (id, session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query,
		conversation.ID,
		conversation.SessionID,
		conversation.CreatedAt,
		conversation.UpdatedAt,
	)
	return err
}

// GetOwned busca por id Y por sesión dueña en la misma query. Devolver una
// conversación de otra sesión sería una fuga de datos entre sesiones, así que
// el filtro de pertenencia nunca se hace a posteriori en memoria.
func (r *PgConversationRepository) GetOwned(ctx context.Context, id, sessionID string) (domain.Conversation, error) {
	const query = `
		SELECT id, session_id, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND session_id = $2
	`
	var conversation domain.Conversation
	err := r.pool.QueryRow(ctx, query, id, sessionID).Scan(
		&conversation.ID,
		&conversation.SessionID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	return conversation, err
}

func (r *PgConversationRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Conversation, error) {
	const query = `
		SELECT id, session_id, created_at, updated_at
		FROM conversations
		WHERE session_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var conversation domain.Conversation
		err = rows.Scan(
			&conversation.ID,
			&conversation.SessionID,
			&conversation.CreatedAt,
			&conversation.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return conversations, nil
}

func (r *PgConversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE conversations SET updated_at = $2 WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}
