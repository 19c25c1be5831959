package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"session-chat/internal/domain"
)

// MessageRepository define el contrato de persistencia para mensajes.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
	ListRecent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
}

// PgMessageRepository implementa MessageRepository usando pgxpool.
type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO messages (id, conversation_id, role, content, image_data, image_mime, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var imageData interface{}
	var imageMIME interface{}
	if len(message.ImageData) > 0 {
		imageData = message.ImageData
		imageMIME = message.ImageMIME
	}

	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.ConversationID,
		message.Role,
		message.Content,
		imageData,
		imageMIME,
		message.CreatedAt,
	)
	return err
}

// ListByConversation devuelve el historial completo en orden ascendente de
// created_at; es el contexto que se envía al modelo.
func (r *PgMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	const query = `
		SELECT id, conversation_id, role, content, image_data, image_mime, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListRecent devuelve los últimos `limit` mensajes reordenados ascendente,
// para acotar el tamaño de respuesta al restaurar historial.
func (r *PgMessageRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	const query = `
		SELECT id, conversation_id, role, content, image_data, image_mime, created_at
		FROM (
			SELECT id, conversation_id, role, content, image_data, image_mime, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var imageData []byte
		var imageMIME *string

		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&imageData,
			&imageMIME,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		msg.ImageData = imageData
		if imageMIME != nil {
			msg.ImageMIME = *imageMIME
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
