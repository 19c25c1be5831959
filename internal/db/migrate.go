package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// El borrado de sesiones expiradas depende de la cadena ON DELETE CASCADE:
// un solo DELETE sobre sessions arrastra conversations y messages de forma
// atómica, sin borrados manuales por tabla.
const keystoneMigration = `
CREATE TABLE IF NOT EXISTS sessions (
    id uuid PRIMARY KEY,
    token uuid NOT NULL UNIQUE,
    expires_at timestamptz NOT NULL,
    created_at timestamptz NOT NULL,
    updated_at timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS sessions_expires_at_idx
ON sessions (expires_at);

CREATE TABLE IF NOT EXISTS conversations (
    id uuid PRIMARY KEY,
    session_id uuid NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    created_at timestamptz NOT NULL,
    updated_at timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS conversations_session_id_idx
ON conversations (session_id);

CREATE TABLE IF NOT EXISTS messages (
    id uuid PRIMARY KEY,
    conversation_id uuid NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    role text NOT NULL,
    content text NOT NULL,
    image_data bytea,
    image_mime text,
    created_at timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS messages_conversation_created_idx
ON messages (conversation_id, created_at);
`

// Migrate aplica el esquema base de forma idempotente al arrancar.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, keystoneMigration)
	return err
}
