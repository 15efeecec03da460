//go:build e2e

package e2e

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type documentJSON struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	Status       string `json:"status"`
	UploadedBy   string `json:"uploadedBy"`
	Rejection    string `json:"rejectedReason,omitempty"`
}

// TestE2E_Auth covers session identity and logout
func TestE2E_Auth(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	t.Run("me returns the session identity", func(t *testing.T) {
		resp, err := env.Get("/auth/me", env.UserToken)
		require.NoError(t, err)

		var me struct {
			UserID string `json:"userId"`
			Role   string `json:"role"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &me))
		assert.Equal(t, env.UserID, me.UserID)
		assert.Equal(t, "USER", me.Role)
	})

	t.Run("requests without a token are rejected", func(t *testing.T) {
		_, err := env.Get("/auth/me", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("regular users cannot reach admin routes", func(t *testing.T) {
		_, err := env.Get("/admin/documents", env.UserToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("logout revokes the session", func(t *testing.T) {
		sessionRepo := newThrowawaySession(t, env)

		_, err := env.Post("/auth/logout", nil, sessionRepo)
		require.NoError(t, err)

		_, err = env.Get("/auth/me", sessionRepo)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

// TestE2E_DocumentLifecycle walks a document from upload through approval,
// processing and retrieval in chat
func TestE2E_DocumentLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	content := []byte("De verreiker heeft een maximale hefhoogte van 17 meter. " +
		"Controleer voor gebruik altijd de stempels en de bandenspanning. " +
		"Bij storingen neem contact op met de technische dienst.")

	var docID string

	t.Run("upload creates a pending document", func(t *testing.T) {
		resp, err := env.Upload("/documents/upload", "verreiker-handleiding.txt", "text/plain", content, env.UserToken)
		require.NoError(t, err)

		var doc documentJSON
		require.NoError(t, json.Unmarshal(resp.Data, &doc))
		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, "PENDING", doc.Status)
		assert.Equal(t, env.UserID, doc.UploadedBy)
		docID = doc.ID
	})

	t.Run("pending document shows up in the admin queue", func(t *testing.T) {
		resp, err := env.Get("/admin/documents?status=PENDING", env.AdminToken)
		require.NoError(t, err)

		var list struct {
			Items []documentJSON `json:"items"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))
		require.Len(t, list.Items, 1)
		assert.Equal(t, docID, list.Items[0].ID)
	})

	t.Run("uploader cannot approve their own view of admin routes", func(t *testing.T) {
		_, err := env.Post("/admin/documents/"+docID+"/approve", nil, env.UserToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("approval kicks off processing", func(t *testing.T) {
		_, err := env.Post("/admin/documents/"+docID+"/approve", nil, env.AdminToken)
		require.NoError(t, err)

		env.WaitForDocumentStatus(docID, "PROCESSED", env.UserToken, 15*time.Second)
	})

	t.Run("processing produced embedded chunks", func(t *testing.T) {
		var count int
		err := env.Pool.QueryRow(env.Ctx,
			"SELECT COUNT(*) FROM document_chunks WHERE document_id = $1 AND embedding IS NOT NULL",
			docID).Scan(&count)
		require.NoError(t, err)
		assert.Greater(t, count, 0)
	})

	t.Run("approving twice conflicts", func(t *testing.T) {
		_, err := env.Post("/admin/documents/"+docID+"/approve", nil, env.AdminToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "409")
	})

	t.Run("chat answers with sources from the processed document", func(t *testing.T) {
		resp, err := env.Post("/chat", map[string]string{
			"message": "Wat is de maximale hefhoogte van de verreiker?",
			"mode":    "TECHNICAL",
		}, env.UserToken)
		require.NoError(t, err)

		var chat struct {
			SessionID string `json:"sessionId"`
			Response  string `json:"response"`
			Sources   []struct {
				Filename string `json:"filename"`
				Content  string `json:"content"`
			} `json:"sources"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &chat))
		assert.NotEmpty(t, chat.SessionID)
		assert.True(t, strings.HasPrefix(chat.Response, "Antwoord op:"))
		require.NotEmpty(t, chat.Sources)
		assert.Equal(t, "verreiker-handleiding.txt", chat.Sources[0].Filename)
		assert.NotEmpty(t, chat.Sources[0].Content)
	})

	t.Run("follow-up message reuses the session", func(t *testing.T) {
		first, err := env.Post("/chat", map[string]string{
			"message": "Eerste vraag",
		}, env.UserToken)
		require.NoError(t, err)

		var opened struct {
			SessionID string `json:"sessionId"`
		}
		require.NoError(t, json.Unmarshal(first.Data, &opened))

		second, err := env.Post("/chat", map[string]string{
			"message":   "Tweede vraag",
			"sessionId": opened.SessionID,
		}, env.UserToken)
		require.NoError(t, err)

		var followed struct {
			SessionID string `json:"sessionId"`
		}
		require.NoError(t, json.Unmarshal(second.Data, &followed))
		assert.Equal(t, opened.SessionID, followed.SessionID)
	})
}

// TestE2E_Rejection covers the rejection path
func TestE2E_Rejection(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	resp, err := env.Upload("/documents/upload", "oud-tarief.txt", "text/plain",
		[]byte("Verouderde tarieven uit 2019."), env.UserToken)
	require.NoError(t, err)

	var doc documentJSON
	require.NoError(t, json.Unmarshal(resp.Data, &doc))

	t.Run("reject requires a reason", func(t *testing.T) {
		_, err := env.Post("/admin/documents/"+doc.ID+"/reject", map[string]string{}, env.AdminToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("reject marks the document with the reason", func(t *testing.T) {
		rejectResp, err := env.Post("/admin/documents/"+doc.ID+"/reject",
			map[string]string{"reason": "verouderde informatie"}, env.AdminToken)
		require.NoError(t, err)

		var rejected documentJSON
		require.NoError(t, json.Unmarshal(rejectResp.Data, &rejected))
		assert.Equal(t, "REJECTED", rejected.Status)
		assert.Equal(t, "verouderde informatie", rejected.Rejection)
	})

	t.Run("rejected documents never become searchable", func(t *testing.T) {
		var count int
		err := env.Pool.QueryRow(env.Ctx,
			"SELECT COUNT(*) FROM document_chunks WHERE document_id = $1", doc.ID).Scan(&count)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

// TestE2E_UploadValidation covers upload rejections
func TestE2E_UploadValidation(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	t.Run("disallowed extension", func(t *testing.T) {
		_, err := env.Upload("/documents/upload", "malware.exe", "application/octet-stream",
			[]byte("MZ"), env.UserToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("upload without auth", func(t *testing.T) {
		_, err := env.Upload("/documents/upload", "notitie.txt", "text/plain",
			[]byte("tekst"), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("other users cannot see the document", func(t *testing.T) {
		resp, err := env.Upload("/documents/upload", "prive.txt", "text/plain",
			[]byte("priveaantekeningen"), env.UserToken)
		require.NoError(t, err)

		var doc documentJSON
		require.NoError(t, json.Unmarshal(resp.Data, &doc))

		otherToken := newThrowawaySession(t, env)
		_, err = env.Get("/documents/"+doc.ID, otherToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")

		adminResp, err := env.Get("/documents/"+doc.ID, env.AdminToken)
		require.NoError(t, err)
		var adminView documentJSON
		require.NoError(t, json.Unmarshal(adminResp.Data, &adminView))
		assert.Equal(t, doc.ID, adminView.ID)
	})
}
