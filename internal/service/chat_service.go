package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"session-chat/internal/domain"
	"session-chat/internal/llm"
	"session-chat/internal/repository"
)

// MaxMessageLength es el tope de caracteres del mensaje ya recortado.
const MaxMessageLength = 400

// HistoryMessageLimit acota los mensajes devueltos por conversación al
// restaurar historial.
const HistoryMessageLimit = 100

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")

	ErrMissingMessage          = errors.New("message is required")
	ErrEmptyMessage            = errors.New("message is empty")
	ErrMessageTooLong          = errors.New("message exceeds maximum length")
	ErrMissingSessionToken     = errors.New("session token is required")
	ErrBadSessionTokenFormat   = errors.New("session token format is invalid")
	ErrBadConversationIDFormat = errors.New("conversation id format is invalid")
	ErrUnpairedImage           = errors.New("image data and mime type must be provided together")

	ErrSessionInvalid       = errors.New("session invalid or expired")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrModelUnavailable     = errors.New("model collaborator failed")
)

// TurnInput es la entrada de un turno de chat ya deserializada.
type TurnInput struct {
	Message        string
	SessionToken   string
	ConversationID string
	ImageData      []byte
	ImageMIME      string
}

// TurnResult es la salida combinada de un turno completado.
type TurnResult struct {
	ReplyText      string
	ConversationID string
	SessionToken   string
}

// ConversationHistory agrupa una conversación con sus mensajes recientes.
type ConversationHistory struct {
	Conversation domain.Conversation
	Messages     []domain.Message
}

// ChatService orquesta un turno de chat: valida entrada, resuelve o crea la
// conversación, persiste el mensaje del usuario, invoca el modelo con el
// historial y persiste la respuesta.
type ChatService struct {
	sessions      *SessionService
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	provider      llm.Provider
}

// NewChatService crea una instancia de ChatService con dependencias necesarias.
func NewChatService(
	sessions *SessionService,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	provider llm.Provider,
) *ChatService {
	return &ChatService{
		sessions:      sessions,
		conversations: conversations,
		messages:      messages,
		provider:      provider,
	}
}

// validateTurnInput aplica las reglas de forma en orden fijo y devuelve la
// primera violada. Es puro: sin I/O.
func validateTurnInput(in TurnInput) error {
	if in.Message == "" {
		return ErrMissingMessage
	}
	trimmed := strings.TrimSpace(in.Message)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(trimmed) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if in.SessionToken == "" {
		return ErrMissingSessionToken
	}
	if _, err := uuid.Parse(in.SessionToken); err != nil {
		return ErrBadSessionTokenFormat
	}
	if in.ConversationID != "" {
		if _, err := uuid.Parse(in.ConversationID); err != nil {
			return ErrBadConversationIDFormat
		}
	}
	if (len(in.ImageData) > 0) != (in.ImageMIME != "") {
		return ErrUnpairedImage
	}
	return nil
}

// HandleTurn ejecuta un turno de chat completo. Si el modelo falla después de
// persistir el mensaje del usuario, ese mensaje queda sin respuesta: el
// cliente reintenta el turno entero y se agrega un mensaje nuevo.
func (s *ChatService) HandleTurn(ctx context.Context, in TurnInput) (TurnResult, error) {
	if s == nil || s.sessions == nil || s.conversations == nil || s.messages == nil || s.provider == nil {
		return TurnResult{}, ErrChatServiceNotConfigured
	}

	if err := validateTurnInput(in); err != nil {
		return TurnResult{}, err
	}

	if _, err := s.sessions.Validate(ctx, in.SessionToken); err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			return TurnResult{}, ErrSessionInvalid
		}
		return TurnResult{}, fmt.Errorf("validate session: %w", err)
	}

	// El registro se carga aparte de la validación; si el cleanup borró la
	// sesión entre ambas lecturas, esto es un not-found y no un 401.
	session, err := s.sessions.Get(ctx, in.SessionToken)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return TurnResult{}, ErrSessionNotFound
		}
		return TurnResult{}, fmt.Errorf("load session: %w", err)
	}

	conversation, err := s.resolveConversation(ctx, in.ConversationID, session.ID)
	if err != nil {
		return TurnResult{}, err
	}

	now := time.Now().UTC()
	userMsg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		Role:           domain.RoleUser,
		Content:        strings.TrimSpace(in.Message),
		ImageData:      in.ImageData,
		ImageMIME:      in.ImageMIME,
		CreatedAt:      now,
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return TurnResult{}, fmt.Errorf("append user message: %w", err)
	}

	// El historial se lee después del insert, así el mensaje recién agregado
	// entra al contexto exactamente una vez.
	history, err := s.messages.ListByConversation(ctx, conversation.ID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("list messages: %w", err)
	}

	turns := make([]llm.Turn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, llm.Turn{
			Role:      msg.Role,
			Content:   msg.Content,
			ImageData: msg.ImageData,
			ImageMIME: msg.ImageMIME,
		})
	}

	reply, err := s.provider.Reply(ctx, turns)
	if err != nil {
		return TurnResult{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	assistantMsg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		Role:           domain.RoleAssistant,
		Content:        reply,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		return TurnResult{}, fmt.Errorf("append assistant message: %w", err)
	}

	// updated_at es el único campo mutable; si falla, el turno ya está
	// completo y no se reporta al cliente.
	_ = s.conversations.Touch(ctx, conversation.ID, assistantMsg.CreatedAt)
	_ = s.sessions.Touch(ctx, session.ID)

	return TurnResult{
		ReplyText:      reply,
		ConversationID: conversation.ID,
		SessionToken:   in.SessionToken,
	}, nil
}

// resolveConversation busca la conversación acotada a la sesión dueña, o crea
// una nueva si el cliente no mandó id.
func (s *ChatService) resolveConversation(ctx context.Context, conversationID, sessionID string) (domain.Conversation, error) {
	if conversationID != "" {
		conversation, err := s.conversations.GetOwned(ctx, conversationID, sessionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.Conversation{}, ErrConversationNotFound
			}
			return domain.Conversation{}, fmt.Errorf("get conversation: %w", err)
		}
		return conversation, nil
	}

	now := time.Now().UTC()
	conversation := domain.Conversation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return domain.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return conversation, nil
}

// History devuelve las conversaciones de la sesión, más recientes primero,
// cada una con sus últimos mensajes en orden ascendente.
func (s *ChatService) History(ctx context.Context, sessionToken string) ([]ConversationHistory, error) {
	if s == nil || s.sessions == nil || s.conversations == nil || s.messages == nil {
		return nil, ErrChatServiceNotConfigured
	}

	if sessionToken == "" {
		return nil, ErrMissingSessionToken
	}
	if _, err := uuid.Parse(sessionToken); err != nil {
		return nil, ErrBadSessionTokenFormat
	}

	if _, err := s.sessions.Validate(ctx, sessionToken); err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("validate session: %w", err)
	}

	session, err := s.sessions.Get(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	conversations, err := s.conversations.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	histories := make([]ConversationHistory, 0, len(conversations))
	for _, conversation := range conversations {
		messages, err := s.messages.ListRecent(ctx, conversation.ID, HistoryMessageLimit)
		if err != nil {
			return nil, fmt.Errorf("list recent messages: %w", err)
		}
		histories = append(histories, ConversationHistory{
			Conversation: conversation,
			Messages:     messages,
		})
	}

	return histories, nil
}
