package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"session-chat/internal/domain"
)

// SessionRepository define el contrato de persistencia para sesiones.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByToken(ctx context.Context, token string) (domain.Session, error)
	Touch(ctx context.Context, id string, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PgSessionRepository implementa SessionRepository usando pgxpool.
type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

func (r *PgSessionRepository) Create(ctx context.Context, session domain.Session) error {
	const query = `
		INSERT INTO sessions (id, token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.Token,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	return err
}

func (r *PgSessionRepository) GetByToken(ctx context.Context, token string) (domain.Session, error) {
	const query = `
		SELECT id, token, expires_at, created_at, updated_at
		FROM sessions
		WHERE token = $1
	`
	var session domain.Session
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&session.ID,
		&session.Token,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	return session, err
}

func (r *PgSessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE sessions SET updated_at = $2 WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

// DeleteExpired borra toda sesión vencida en un único DELETE; el esquema
// cascadea conversations y messages, así que el statement es atómico.
func (r *PgSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		DELETE FROM sessions WHERE expires_at < $1
	`
	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
