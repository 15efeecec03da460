package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_LegalPaths(t *testing.T) {
	legal := []struct {
		from DocumentStatus
		to   DocumentStatus
	}{
		{DocumentStatusPending, DocumentStatusApproved},
		{DocumentStatusPending, DocumentStatusRejected},
		{DocumentStatusApproved, DocumentStatusProcessing},
		{DocumentStatusProcessing, DocumentStatusProcessed},
		{DocumentStatusProcessing, DocumentStatusError},
	}

	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}
}

func TestCanTransition_IllegalPaths(t *testing.T) {
	all := []DocumentStatus{
		DocumentStatusPending, DocumentStatusApproved, DocumentStatusRejected,
		DocumentStatusProcessing, DocumentStatusProcessed, DocumentStatusError,
	}

	legal := map[DocumentStatus]map[DocumentStatus]bool{
		DocumentStatusPending:    {DocumentStatusApproved: true, DocumentStatusRejected: true},
		DocumentStatusApproved:   {DocumentStatusProcessing: true},
		DocumentStatusProcessing: {DocumentStatusProcessed: true, DocumentStatusError: true},
	}

	for _, from := range all {
		for _, to := range all {
			if legal[from][to] {
				continue
			}
			assert.False(t, CanTransition(from, to), "%s -> %s should be illegal", from, to)
		}
	}
}

func TestCanTransition_TerminalStates(t *testing.T) {
	terminals := []DocumentStatus{DocumentStatusRejected, DocumentStatusProcessed, DocumentStatusError}
	targets := []DocumentStatus{
		DocumentStatusPending, DocumentStatusApproved, DocumentStatusRejected,
		DocumentStatusProcessing, DocumentStatusProcessed, DocumentStatusError,
	}

	for _, from := range terminals {
		for _, to := range targets {
			assert.False(t, CanTransition(from, to), "no transition out of %s", from)
		}
	}
}

func TestDocument_Transition_Success(t *testing.T) {
	now := time.Now().UTC()
	doc := NewDocument("doc-1", "123-handleiding.pdf", "handleiding.pdf", "application/pdf", 1024, "user-1", "https://example/doc", now)

	later := now.Add(time.Minute)
	err := doc.Transition(DocumentStatusApproved, later)

	assert.NoError(t, err)
	assert.Equal(t, DocumentStatusApproved, doc.Status)
	assert.Equal(t, later, doc.UpdatedAt)
}

func TestDocument_Transition_StateConflict(t *testing.T) {
	now := time.Now().UTC()
	doc := NewDocument("doc-1", "123-a.txt", "a.txt", "text/plain", 10, "user-1", "", now)
	doc.Status = DocumentStatusProcessed

	err := doc.Transition(DocumentStatusProcessing, now)

	assert.Error(t, err)
	domainErr, ok := err.(*DomainError)
	assert.True(t, ok)
	assert.Equal(t, ErrCodeStateConflict, domainErr.Code)
	assert.Equal(t, DocumentStatusProcessed, doc.Status)
}

func TestValidateDocument(t *testing.T) {
	now := time.Now().UTC()
	doc := NewDocument("doc-1", "123-a.txt", "a.txt", "text/plain", 10, "user-1", "", now)

	assert.NoError(t, ValidateDocument(doc))

	doc.Status = DocumentStatusRejected
	err := ValidateDocument(doc)
	assert.Error(t, err, "rejected without reason should fail validation")

	doc.RejectedReason = "duplicate upload"
	assert.NoError(t, ValidateDocument(doc))

	assert.Error(t, ValidateDocument(nil))
	assert.Error(t, ValidateDocument(&Document{ID: "x"}))
}

func TestValidateChatSession(t *testing.T) {
	now := time.Now().UTC()
	session := NewChatSession("sess-1", "user-1", ChatModeTechnical, now)

	assert.NoError(t, ValidateChatSession(session))
	assert.True(t, session.IsActive)
	assert.Empty(t, session.Title, "title is assigned lazily")

	session.Mode = ChatMode("MARKETING")
	assert.Error(t, ValidateChatSession(session))
}

func TestValidateMessage(t *testing.T) {
	msg := &Message{
		SessionID: "sess-1",
		Role:      MessageRoleUser,
		Content:   "Hoe installeer ik de hoogwerker?",
		CreatedAt: time.Now().UTC(),
	}

	assert.NoError(t, ValidateMessage(msg))

	msg.Role = MessageRole("OBSERVER")
	assert.Error(t, ValidateMessage(msg))
}

func TestIdentity_IsAdmin(t *testing.T) {
	assert.False(t, Identity{UserID: "u", Role: RoleUser}.IsAdmin())
	assert.True(t, Identity{UserID: "u", Role: RoleAdmin}.IsAdmin())
	assert.True(t, Identity{UserID: "u", Role: RoleSuperAdmin}.IsAdmin())
}
