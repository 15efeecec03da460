package domain

import (
	"fmt"
	"time"
)

// ChatMode selects the assistant persona for a session
type ChatMode string

const (
	ChatModeTechnical ChatMode = "TECHNICAL"
	ChatModeInkoop    ChatMode = "INKOOP"
)

// MessageRole represents the author of a chat message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "USER"
	MessageRoleAssistant MessageRole = "ASSISTANT"
	MessageRoleSystem    MessageRole = "SYSTEM"
)

// ChatSession represents a conversation between one user and the assistant.
// Mode is fixed at creation; Title is assigned lazily after the first
// exchange.
type ChatSession struct {
	ID        string
	UserID    string
	Mode      ChatMode
	Title     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageMetadata records how an assistant reply was produced.
type MessageMetadata struct {
	Model             string `json:"model"`
	RelevantDocuments int    `json:"relevantDocuments"`
}

// Message represents one turn in a chat session. Messages are append-only
// and ordered by CreatedAt.
type Message struct {
	ID        string
	SessionID string
	Role      MessageRole
	Content   string
	Tokens    int
	Metadata  *MessageMetadata
	CreatedAt time.Time
}

// NewChatSession creates an active ChatSession without a title
func NewChatSession(id, userID string, mode ChatMode, now time.Time) *ChatSession {
	return &ChatSession{
		ID:        id,
		UserID:    userID,
		Mode:      mode,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateChatSession validates a ChatSession instance
func ValidateChatSession(s *ChatSession) error {
	if s == nil {
		return fmt.Errorf("chat session cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("chat session ID is required")
	}

	if s.UserID == "" {
		return fmt.Errorf("chat session UserID is required")
	}

	if !isValidChatMode(s.Mode) {
		return fmt.Errorf("chat session Mode is invalid: %s", s.Mode)
	}

	return nil
}

// isValidChatMode checks if a ChatMode is valid
func isValidChatMode(m ChatMode) bool {
	switch m {
	case ChatModeTechnical, ChatModeInkoop:
		return true
	}
	return false
}

// isValidMessageRole checks if a MessageRole is valid
func isValidMessageRole(r MessageRole) bool {
	switch r {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleSystem:
		return true
	}
	return false
}

// ValidateMessage validates a Message instance
func ValidateMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}

	if m.SessionID == "" {
		return fmt.Errorf("message SessionID is required")
	}

	if m.Content == "" {
		return fmt.Errorf("message Content is required")
	}

	if !isValidMessageRole(m.Role) {
		return fmt.Errorf("message Role is invalid: %s", m.Role)
	}

	return nil
}
