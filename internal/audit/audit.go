// Package audit records security-relevant actions to a persistent log.
// Writes are best effort: a failing audit write never fails the operation
// that triggered it.
package audit

import (
	"context"
	"log"
	"time"
)

// Severity classifies an audit entry
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Entry is one audit record.
type Entry struct {
	ID           string
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Severity     Severity
	Details      map[string]any
	CreatedAt    time.Time
}

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, entry *Entry) error
}

// IDGenerator produces unique identifiers for entries.
type IDGenerator interface {
	NewID() string
}

// Logger writes audit entries through a Store. A nil Store degrades to
// console-only logging so the service keeps working without the table.
type Logger struct {
	store Store
	ids   IDGenerator
	now   func() time.Time
}

// NewLogger creates an audit logger backed by the given store.
func NewLogger(store Store, ids IDGenerator) *Logger {
	return &Logger{
		store: store,
		ids:   ids,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Log persists one entry. Failures are written to the console and swallowed.
func (l *Logger) Log(ctx context.Context, userID, action, resourceType, resourceID string, severity Severity, details map[string]any) {
	entry := &Entry{
		ID:           l.ids.NewID(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Severity:     severity,
		Details:      details,
		CreatedAt:    l.now(),
	}

	if l.store == nil {
		log.Printf("audit: [%s] user=%s action=%s %s/%s", entry.Severity, entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID)
		return
	}

	if err := l.store.Insert(ctx, entry); err != nil {
		log.Printf("audit: failed to persist entry (action=%s user=%s): %v", entry.Action, entry.UserID, err)
	}
}

// LogDocument records a document lifecycle action.
func (l *Logger) LogDocument(ctx context.Context, userID, action, documentID string, severity Severity, details map[string]any) {
	l.Log(ctx, userID, action, "document", documentID, severity, details)
}

// LogChat records a chat action.
func (l *Logger) LogChat(ctx context.Context, userID, action, sessionID string, details map[string]any) {
	l.Log(ctx, userID, action, "chat_session", sessionID, SeverityInfo, details)
}
