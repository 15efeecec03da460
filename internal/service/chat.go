package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/csrental/cees/internal/audit"
	"github.com/csrental/cees/internal/domain"
	"github.com/csrental/cees/internal/openai"
	"github.com/csrental/cees/internal/telemetry"
)

const (
	chatMaxTokens   = 4000
	chatTemperature = 0.7

	titleMaxTokens   = 20
	titleTemperature = 0.5
	titleMaxLength   = 50
	titlePromptChars = 200
	fallbackTitle    = "Nieuwe Chat"

	historyLimit = 20

	titleTimeout = 30 * time.Second
)

const titleSystemPrompt = `Genereer een korte, beschrijvende titel (max 50 karakters) voor deze chat conversatie in het Nederlands. Geef alleen de titel terug, geen extra tekst.`

// ChatSessionRepositoryInterface defines the repository interface for chat sessions
type ChatSessionRepositoryInterface interface {
	Create(ctx context.Context, s *domain.ChatSession) error
	GetByIDForUser(ctx context.Context, id, userID string) (*domain.ChatSession, error)
	UpdateTitle(ctx context.Context, id, title string, now time.Time) error
	Touch(ctx context.Context, id string, now time.Time) error
}

// MessageRepositoryInterface defines the repository interface for messages
type MessageRepositoryInterface interface {
	Create(ctx context.Context, m *domain.Message) error
	ListRecentBySession(ctx context.Context, sessionID string, limit int) ([]*domain.Message, error)
}

// CompletionClient defines the interface for chat completions
type CompletionClient interface {
	CreateCompletion(ctx context.Context, req openai.CompletionRequest) (*openai.Completion, error)
}

// Retriever finds chunks relevant to a message.
type Retriever interface {
	Search(ctx context.Context, query string) []*RetrievedChunk
}

// ChatConfig selects the completion models.
type ChatConfig struct {
	ChatModel  string
	TitleModel string
}

// Source attributes part of a reply to an uploaded document.
type Source struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// ChatService orchestrates a chat turn: session resolution, retrieval,
// completion, and persistence of both sides of the exchange.
type ChatService struct {
	sessionRepo ChatSessionRepositoryInterface
	messageRepo MessageRepositoryInterface
	retriever   Retriever
	completions CompletionClient
	auditLog    *audit.Logger
	uuidGen     UUIDGenerator
	cfg         ChatConfig
	now         func() time.Time
}

// NewChatService creates a new ChatService instance
func NewChatService(
	sessionRepo ChatSessionRepositoryInterface,
	messageRepo MessageRepositoryInterface,
	retriever Retriever,
	completions CompletionClient,
	auditLog *audit.Logger,
	cfg ChatConfig,
) *ChatService {
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4-turbo-preview"
	}
	if cfg.TitleModel == "" {
		cfg.TitleModel = "gpt-3.5-turbo"
	}
	return &ChatService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		retriever:   retriever,
		completions: completions,
		auditLog:    auditLog,
		uuidGen:     &DefaultUUIDGenerator{},
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetUUIDGenerator overrides the ID generator (for testing).
func (s *ChatService) SetUUIDGenerator(gen UUIDGenerator) {
	s.uuidGen = gen
}

// SetClock overrides the clock (for testing).
func (s *ChatService) SetClock(now func() time.Time) {
	s.now = now
}

// SendMessageInput represents one incoming chat message
type SendMessageInput struct {
	UserID    string
	SessionID string
	Mode      domain.ChatMode
	Message   string
}

// SendMessageOutput is the reply plus its supporting sources
type SendMessageOutput struct {
	SessionID string
	Response  string
	Sources   []Source
}

// SendMessage runs one chat turn for a user.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.SendMessage", telemetry.SpanAttributes{
		UserID:    input.UserID,
		SessionID: input.SessionID,
		Operation: "chat",
	})
	defer span.End()

	if strings.TrimSpace(input.Message) == "" {
		return nil, domain.ErrEmptyMessage
	}

	mode := input.Mode
	if mode == "" {
		mode = domain.ChatModeTechnical
	}

	session, isNew, err := s.resolveSession(ctx, input.UserID, input.SessionID, mode)
	if err != nil {
		return nil, err
	}

	now := s.now()
	userMsg := &domain.Message{
		ID:        s.uuidGen.NewString(),
		SessionID: session.ID,
		Role:      domain.MessageRoleUser,
		Content:   input.Message,
		CreatedAt: now,
	}
	if err := domain.ValidateMessage(userMsg); err != nil {
		return nil, err
	}
	if err := s.messageRepo.Create(ctx, userMsg); err != nil {
		return nil, err
	}

	history, err := s.messageRepo.ListRecentBySession(ctx, session.ID, historyLimit)
	if err != nil {
		return nil, err
	}

	chunks := s.retriever.Search(ctx, input.Message)

	messages := make([]openai.ChatMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatMessage{
		Role:    "system",
		Content: SystemPromptFor(session.Mode) + BuildContextBlock(chunks),
	})
	for _, m := range history {
		// Stored system messages are never replayed; the fresh system
		// message above is the only system turn.
		if m.Role == domain.MessageRoleSystem {
			continue
		}
		messages = append(messages, openai.ChatMessage{
			Role:    strings.ToLower(string(m.Role)),
			Content: m.Content,
		})
	}

	completion, err := s.completions.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       s.cfg.ChatModel,
		Messages:    messages,
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	})
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "failed to process chat message, please try again", err)
	}

	assistantMsg := &domain.Message{
		ID:        s.uuidGen.NewString(),
		SessionID: session.ID,
		Role:      domain.MessageRoleAssistant,
		Content:   completion.Text,
		Tokens:    completion.Tokens,
		Metadata: &domain.MessageMetadata{
			Model:             completion.Model,
			RelevantDocuments: len(chunks),
		},
		CreatedAt: s.now(),
	}
	if err := s.messageRepo.Create(ctx, assistantMsg); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Touch(ctx, session.ID, s.now()); err != nil {
		log.Printf("chat: failed to touch session %s: %v", session.ID, err)
	}

	if isNew || session.Title == "" {
		go s.assignTitle(session.ID, input.Message)
	}

	s.auditLog.LogChat(ctx, input.UserID, "MESSAGE_EXCHANGED", session.ID, map[string]any{
		"mode":              string(session.Mode),
		"tokens":            completion.Tokens,
		"relevantDocuments": len(chunks),
	})

	sources := make([]Source, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, Source{
			Filename: c.Filename,
			Content:  snippet(c.Content) + "...",
		})
	}

	return &SendMessageOutput{
		SessionID: session.ID,
		Response:  completion.Text,
		Sources:   sources,
	}, nil
}

// resolveSession loads the user's session or starts a fresh one. A session
// id that is unknown or belongs to another user falls back to a new session
// rather than failing the message.
func (s *ChatService) resolveSession(ctx context.Context, userID, sessionID string, mode domain.ChatMode) (*domain.ChatSession, bool, error) {
	if sessionID != "" {
		session, err := s.sessionRepo.GetByIDForUser(ctx, sessionID, userID)
		if err == nil {
			return session, false, nil
		}
		if err != domain.ErrSessionNotFound {
			return nil, false, err
		}
	}

	session := domain.NewChatSession(s.uuidGen.NewString(), userID, mode, s.now())
	if err := domain.ValidateChatSession(session); err != nil {
		return nil, false, err
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// assignTitle generates and stores a session title from the first user
// message. Best effort: on any failure the fallback title is used, and a
// failing update only logs.
func (s *ChatService) assignTitle(sessionID, firstUserMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
	defer cancel()

	title := s.generateTitle(ctx, firstUserMessage)
	if err := s.sessionRepo.UpdateTitle(ctx, sessionID, title, s.now()); err != nil {
		log.Printf("chat: failed to set title for session %s: %v", sessionID, err)
	}
}

func (s *ChatService) generateTitle(ctx context.Context, firstUserMessage string) string {
	if strings.TrimSpace(firstUserMessage) == "" {
		return fallbackTitle
	}

	prompt := firstUserMessage
	if r := []rune(prompt); len(r) > titlePromptChars {
		prompt = string(r[:titlePromptChars])
	}

	completion, err := s.completions.CreateCompletion(ctx, openai.CompletionRequest{
		Model: s.cfg.TitleModel,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: titleSystemPrompt},
			{Role: "user", Content: "Eerste bericht: " + prompt},
		},
		MaxTokens:   titleMaxTokens,
		Temperature: titleTemperature,
	})
	if err != nil {
		log.Printf("chat: title generation failed: %v", err)
		return fallbackTitle
	}

	title := strings.TrimSpace(completion.Text)
	if title == "" {
		return fallbackTitle
	}
	// Truncate on rune boundaries so Dutch diacritics survive
	if r := []rune(title); len(r) > titleMaxLength {
		return string(r[:titleMaxLength-3]) + "..."
	}
	return title
}
