package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"session-chat/internal/config"
	"session-chat/internal/domain"
	"session-chat/internal/llm"
	"session-chat/internal/repository"
	"session-chat/internal/service"
)

// --- Repos en memoria para el stack HTTP de prueba ---

type memSessionRepo struct {
	byToken map[string]domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byToken: make(map[string]domain.Session)}
}

func (m *memSessionRepo) Create(_ context.Context, session domain.Session) error {
	m.byToken[session.Token] = session
	return nil
}

func (m *memSessionRepo) GetByToken(_ context.Context, token string) (domain.Session, error) {
	session, ok := m.byToken[token]
	if !ok {
		return domain.Session{}, pgx.ErrNoRows
	}
	return session, nil
}

func (m *memSessionRepo) Touch(_ context.Context, id string, at time.Time) error {
	for token, session := range m.byToken {
		if session.ID == id {
			session.UpdatedAt = at
			m.byToken[token] = session
		}
	}
	return nil
}

func (m *memSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for token, session := range m.byToken {
		if session.ExpiresAt.Before(now) {
			delete(m.byToken, token)
			count++
		}
	}
	return count, nil
}

func (m *memSessionRepo) seed(expiresAt time.Time) domain.Session {
	now := time.Now().UTC()
	session := domain.Session{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.byToken[session.Token] = session
	return session
}

type memConversationRepo struct {
	byID map[string]domain.Conversation
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{byID: make(map[string]domain.Conversation)}
}

func (m *memConversationRepo) Create(_ context.Context, conversation domain.Conversation) error {
	m.byID[conversation.ID] = conversation
	return nil
}

func (m *memConversationRepo) GetOwned(_ context.Context, id, sessionID string) (domain.Conversation, error) {
	conversation, ok := m.byID[id]
	if !ok || conversation.SessionID != sessionID {
		return domain.Conversation{}, pgx.ErrNoRows
	}
	return conversation, nil
}

func (m *memConversationRepo) ListBySession(_ context.Context, sessionID string) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	for _, conversation := range m.byID {
		if conversation.SessionID == sessionID {
			conversations = append(conversations, conversation)
		}
	}
	return conversations, nil
}

func (m *memConversationRepo) Touch(_ context.Context, id string, at time.Time) error {
	if conversation, ok := m.byID[id]; ok {
		conversation.UpdatedAt = at
		m.byID[id] = conversation
	}
	return nil
}

type memMessageRepo struct {
	byConversation map[string][]domain.Message
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{byConversation: make(map[string][]domain.Message)}
}

func (m *memMessageRepo) Create(_ context.Context, message domain.Message) error {
	m.byConversation[message.ConversationID] = append(m.byConversation[message.ConversationID], message)
	return nil
}

func (m *memMessageRepo) ListByConversation(_ context.Context, conversationID string) ([]domain.Message, error) {
	return append([]domain.Message(nil), m.byConversation[conversationID]...), nil
}

func (m *memMessageRepo) ListRecent(_ context.Context, conversationID string, limit int) ([]domain.Message, error) {
	messages := m.byConversation[conversationID]
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return append([]domain.Message(nil), messages...), nil
}

var (
	_ repository.SessionRepository      = (*memSessionRepo)(nil)
	_ repository.ConversationRepository = (*memConversationRepo)(nil)
	_ repository.MessageRepository      = (*memMessageRepo)(nil)
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(context.Context) error { return p.err }

// --- Fixture ---

type apiFixture struct {
	router        *gin.Engine
	sessions      *memSessionRepo
	conversations *memConversationRepo
	messages      *memMessageRepo
	provider      *llm.MockProvider
	pinger        *stubPinger
}

func newAPIFixture(t *testing.T, cleanupSecret string) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	sessionRepo := newMemSessionRepo()
	conversationRepo := newMemConversationRepo()
	messageRepo := newMemMessageRepo()
	provider := &llm.MockProvider{Response: "respuesta del asistente"}
	pinger := &stubPinger{}

	cfg := &config.Config{
		DatabaseURL:     "postgres://test",
		LLMAPIKey:       "test-key",
		SessionTTLHours: 24,
		CleanupSecret:   cleanupSecret,
	}

	sessionSvc := service.NewSessionService(sessionRepo, nil, cfg.SessionTTL())
	chatSvc := service.NewChatService(sessionSvc, conversationRepo, messageRepo, provider)

	router := NewRouter(
		logger,
		NewSessionHandler(logger, sessionSvc),
		NewChatHandler(logger, chatSvc),
		NewAdminHandler(logger, sessionSvc, cleanupSecret),
		NewHealthHandler(logger, pinger, cfg),
	)

	return &apiFixture{
		router:        router,
		sessions:      sessionRepo,
		conversations: conversationRepo,
		messages:      messageRepo,
		provider:      provider,
		pinger:        pinger,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var decoded map[string]any
	if len(rec.Body.Bytes()) > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

// --- Tests de POST /chat y GET /conversations ---

func TestPostChat_MalformedBody(t *testing.T) {
	f := newAPIFixture(t, "")

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ValidationError") {
		t.Fatalf("expected ValidationError code, got %s", rec.Body.String())
	}
}

func TestPostChat_FullScenario(t *testing.T) {
	f := newAPIFixture(t, "")
	session := f.sessions.seed(time.Now().UTC().Add(time.Hour))

	rec, body := f.do(t, http.MethodPost, "/chat", map[string]any{
		"message":      "hello",
		"sessionToken": session.Token,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["replyText"] != "respuesta del asistente" {
		t.Fatalf("unexpected reply %v", body["replyText"])
	}
	if body["sessionToken"] != session.Token {
		t.Fatalf("expected session token echoed, got %v", body["sessionToken"])
	}
	conversationID, _ := body["conversationId"].(string)
	if conversationID == "" {
		t.Fatalf("expected conversation id in response")
	}

	rec, body = f.do(t, http.MethodPost, "/chat", map[string]any{
		"message":        "again",
		"sessionToken":   session.Token,
		"conversationId": conversationID,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on second turn, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["conversationId"] != conversationID {
		t.Fatalf("expected conversation reuse, got %v", body["conversationId"])
	}

	messages := f.messages.byConversation[conversationID]
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages after two turns, got %d", len(messages))
	}
	wantRoles := []string{domain.RoleUser, domain.RoleAssistant, domain.RoleUser, domain.RoleAssistant}
	for i, role := range wantRoles {
		if messages[i].Role != role {
			t.Fatalf("message %d: expected role %s, got %s", i, role, messages[i].Role)
		}
	}
}

func TestPostChat_ValidationCodes(t *testing.T) {
	f := newAPIFixture(t, "")
	session := f.sessions.seed(time.Now().UTC().Add(time.Hour))

	cases := []struct {
		name     string
		body     map[string]any
		wantCode string
	}{
		{"empty message", map[string]any{"message": "   ", "sessionToken": session.Token}, "EmptyMessage"},
		{"too long", map[string]any{"message": strings.Repeat("a", 401), "sessionToken": session.Token}, "MessageTooLong"},
		{"missing session", map[string]any{"message": "hola"}, "MissingSessionId"},
		{"bad session format", map[string]any{"message": "hola", "sessionToken": "abc"}, "InvalidSessionIdFormat"},
		{"bad conversation format", map[string]any{"message": "hola", "sessionToken": session.Token, "conversationId": "abc"}, "InvalidConversationIdFormat"},
	}
	for _, tc := range cases {
		rec, body := f.do(t, http.MethodPost, "/chat", tc.body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rec.Code)
		}
		if body["code"] != tc.wantCode {
			t.Fatalf("%s: expected code %s, got %v", tc.name, tc.wantCode, body["code"])
		}
	}
}

func TestPostChat_MessageBoundary(t *testing.T) {
	f := newAPIFixture(t, "")
	session := f.sessions.seed(time.Now().UTC().Add(time.Hour))

	rec, _ := f.do(t, http.MethodPost, "/chat", map[string]any{
		"message":      strings.Repeat("a", 400),
		"sessionToken": session.Token,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 400-char message to pass, got %d", rec.Code)
	}
}

func TestPostChat_SessionInvalid(t *testing.T) {
	f := newAPIFixture(t, "")

	rec, body := f.do(t, http.MethodPost, "/chat", map[string]any{
		"message":      "hola",
		"sessionToken": uuid.NewString(),
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body["code"] != "SessionInvalid" {
		t.Fatalf("expected SessionInvalid, got %v", body["code"])
	}

	expired := f.sessions.seed(time.Now().UTC().Add(-time.Minute))
	rec, _ = f.do(t, http.MethodPost, "/chat", map[string]any{
		"message":      "hola",
		"sessionToken": expired.Token,
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired session, got %d", rec.Code)
	}
}

func TestPostChat_ForeignConversationIs404(t *testing.T) {
	f := newAPIFixture(t, "")
	owner := f.sessions.seed(time.Now().UTC().Add(time.Hour))
	intruder := f.sessions.seed(time.Now().UTC().Add(time.Hour))

	_, body := f.do(t, http.MethodPost, "/chat", map[string]any{
		"message":      "secreto",
		"sessionToken": owner.Token,
	}, nil)
	conversationID, _ := body["conversationId"].(string)

	rec, body := f.do(t, http.MethodPost, "/chat", map[string]any{
		"message":        "hola",
		"sessionToken":   intruder.Token,
		"conversationId": conversationID,
	}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body["code"] != "ConversationNotFound" {
		t.Fatalf("expected ConversationNotFound, got %v", body["code"])
	}
}

func TestPostChat_UpstreamError(t *testing.T) {
	f := newAPIFixture(t, "")
	f.provider.Err = fmt.Errorf("model timeout")
	session := f.sessions.seed(time.Now().UTC().Add(time.Hour))

	rec, body := f.do(t, http.MethodPost, "/chat", map[string]any{
		"message":      "hola",
		"sessionToken": session.Token,
	}, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body["code"] != "UpstreamError" {
		t.Fatalf("expected UpstreamError, got %v", body["code"])
	}
}

func TestListConversations(t *testing.T) {
	f := newAPIFixture(t, "")
	session := f.sessions.seed(time.Now().UTC().Add(time.Hour))

	f.do(t, http.MethodPost, "/chat", map[string]any{
		"message":      "hola",
		"sessionToken": session.Token,
	}, nil)

	rec, body := f.do(t, http.MethodGet, "/conversations?sessionToken="+session.Token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	conversations, ok := body["conversations"].([]any)
	if !ok || len(conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %v", body["conversations"])
	}
	conversation := conversations[0].(map[string]any)
	messages, ok := conversation["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %v", conversation["messages"])
	}
	first := messages[0].(map[string]any)
	if first["role"] != domain.RoleUser || first["content"] != "hola" {
		t.Fatalf("unexpected first message %v", first)
	}
}

func TestListConversations_Validation(t *testing.T) {
	f := newAPIFixture(t, "")

	rec, body := f.do(t, http.MethodGet, "/conversations", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body["code"] != "MissingSessionId" {
		t.Fatalf("expected MissingSessionId, got %v", body["code"])
	}

	rec, body = f.do(t, http.MethodGet, "/conversations?sessionToken="+uuid.NewString(), nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body["code"] != "SessionInvalid" {
		t.Fatalf("expected SessionInvalid, got %v", body["code"])
	}
}
