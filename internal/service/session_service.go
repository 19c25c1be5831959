package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"session-chat/internal/domain"
	"session-chat/internal/repository"
)

var (
	ErrSessionServiceNotConfigured = errors.New("session service not configured")
	ErrSessionNotFound             = errors.New("session not found")
	ErrSessionExpired              = errors.New("session expired")
)

// SessionService encapsula el ciclo de vida de las sesiones anónimas:
// emisión de token, validación contra expiración y limpieza en bloque.
type SessionService struct {
	repo  repository.SessionRepository
	cache SessionCache
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionService crea una instancia de SessionService. El cache puede
// ser nil; en ese caso toda validación va directa a la base.
func NewSessionService(repo repository.SessionRepository, cache SessionCache, ttl time.Duration) *SessionService {
	return &SessionService{repo: repo, cache: cache, ttl: ttl}
}

// clock devuelve la hora actual en UTC; now puede ser nil.
func (s *SessionService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// Create emite una sesión nueva con token aleatorio (uuid v4) y expiración
// now + TTL configurado.
func (s *SessionService) Create(ctx context.Context) (domain.Session, error) {
	if s == nil || s.repo == nil {
		return domain.Session{}, ErrSessionServiceNotConfigured
	}

	now := s.clock()
	session := domain.Session{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, session.Token, session.ExpiresAt)
	}

	return session, nil
}

// Validate comprueba que el token exista y no esté vencido. Devuelve la
// expiración vigente. Una sesión es válida hasta expires_at inclusive y
// deja de serlo estrictamente después; no borra nada de forma síncrona.
func (s *SessionService) Validate(ctx context.Context, token string) (time.Time, error) {
	if s == nil || s.repo == nil {
		return time.Time{}, ErrSessionServiceNotConfigured
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, ErrSessionNotFound
	}

	now := s.clock()

	if s.cache != nil {
		if expiresAt, ok := s.cache.Get(ctx, token); ok {
			if now.After(expiresAt) {
				return time.Time{}, ErrSessionExpired
			}
			return expiresAt, nil
		}
	}

	session, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrSessionNotFound
		}
		return time.Time{}, fmt.Errorf("get session: %w", err)
	}

	if now.After(session.ExpiresAt) {
		return time.Time{}, ErrSessionExpired
	}

	if s.cache != nil {
		s.cache.Set(ctx, token, session.ExpiresAt)
	}

	return session.ExpiresAt, nil
}

// Get carga el registro interno de la sesión, siempre desde la base.
func (s *SessionService) Get(ctx context.Context, token string) (domain.Session, error) {
	if s == nil || s.repo == nil {
		return domain.Session{}, ErrSessionServiceNotConfigured
	}

	session, err := s.repo.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// Touch actualiza updated_at; es el único campo mutable de una sesión.
func (s *SessionService) Touch(ctx context.Context, id string) error {
	if s == nil || s.repo == nil {
		return ErrSessionServiceNotConfigured
	}
	return s.repo.Touch(ctx, id, s.clock())
}

// CleanupExpired borra todas las sesiones vencidas con sus conversaciones y
// mensajes, y devuelve cuántas sesiones se eliminaron. Es idempotente: solo
// afecta filas ya vencidas al momento de la llamada.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	if s == nil || s.repo == nil {
		return 0, ErrSessionServiceNotConfigured
	}

	count, err := s.repo.DeleteExpired(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return count, nil
}
