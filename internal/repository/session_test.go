//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/csrental/cees/internal/audit"
	"github.com/csrental/cees/internal/domain"
	"github.com/csrental/cees/internal/service"
	"github.com/csrental/cees/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSessionRepository_CreateAndGetByHash(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewUserSessionRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	session := &domain.UserSession{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		Role:      domain.RoleAdmin,
		TokenHash: "abc123hash",
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, session))

	retrieved, err := repo.GetByHash(ctx, "abc123hash")
	require.NoError(t, err)
	assert.Equal(t, session.ID, retrieved.ID)
	assert.Equal(t, domain.RoleAdmin, retrieved.Role)
	assert.Nil(t, retrieved.RevokedAt)

	_, err = repo.GetByHash(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrUserSessionNotFound)
}

func TestUserSessionRepository_Revoke(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewUserSessionRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	session := &domain.UserSession{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		Role:      domain.RoleUser,
		TokenHash: "revoke-me",
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, session))

	require.NoError(t, repo.Revoke(ctx, session.ID, now))

	retrieved, err := repo.GetByHash(ctx, "revoke-me")
	require.NoError(t, err)
	require.NotNil(t, retrieved.RevokedAt)

	// Second revoke is a no-op on an already revoked session
	err = repo.Revoke(ctx, session.ID, now)
	assert.ErrorIs(t, err, domain.ErrUserSessionNotFound)
}

func TestApprovalRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	approvalRepo := NewApprovalRepository(pool)

	doc := newTestDocument("user-1")
	require.NoError(t, docRepo.Create(ctx, doc))

	now := time.Now().UTC().Truncate(time.Microsecond)
	approval := &domain.DocumentApproval{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		UserID:     "admin-1",
		Action:     domain.ApprovalActionReject,
		Reason:     "verouderde prijslijst",
		CreatedAt:  now,
	}
	require.NoError(t, approvalRepo.Create(ctx, approval))

	decisions, err := approvalRepo.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, domain.ApprovalActionReject, decisions[0].Action)
	assert.Equal(t, "verouderde prijslijst", decisions[0].Reason)
}

func TestAuditLogRepository_Insert(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewAuditLogRepository(pool)

	entry := &audit.Entry{
		ID:           uuid.NewString(),
		UserID:       "admin-1",
		Action:       "document.approve",
		ResourceType: "document",
		ResourceID:   uuid.NewString(),
		Severity:     audit.SeverityInfo,
		Details:      map[string]any{"filename": "handleiding.pdf"},
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Insert(ctx, entry))

	var count int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs WHERE user_id = $1", "admin-1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTxRunner_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	runner := NewTxRunner(pool)
	docRepo := NewDocumentRepository(pool)

	doc := newTestDocument("user-1")
	require.NoError(t, docRepo.Create(ctx, doc))

	now := time.Now().UTC().Truncate(time.Microsecond)
	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		require.NoError(t, doc.Transition(domain.DocumentStatusApproved, now))
		if err := repos.Documents().Update(ctx, doc); err != nil {
			return err
		}
		// Duplicate primary key forces the transaction to fail
		approval := &domain.DocumentApproval{
			ID: uuid.NewString(), DocumentID: doc.ID, UserID: "admin-1",
			Action: domain.ApprovalActionApprove, CreatedAt: now,
		}
		if err := repos.Approvals().Create(ctx, approval); err != nil {
			return err
		}
		return repos.Approvals().Create(ctx, approval)
	})
	require.Error(t, err)

	retrieved, getErr := docRepo.GetByID(ctx, doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.DocumentStatusPending, retrieved.Status)
}

func TestTxRunner_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	runner := NewTxRunner(pool)
	docRepo := NewDocumentRepository(pool)
	approvalRepo := NewApprovalRepository(pool)

	doc := newTestDocument("user-1")
	require.NoError(t, docRepo.Create(ctx, doc))

	now := time.Now().UTC().Truncate(time.Microsecond)
	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		if err := doc.Transition(domain.DocumentStatusApproved, now); err != nil {
			return err
		}
		doc.ApprovedBy = "admin-1"
		doc.ApprovedAt = &now
		if err := repos.Documents().Update(ctx, doc); err != nil {
			return err
		}
		return repos.Approvals().Create(ctx, &domain.DocumentApproval{
			ID: uuid.NewString(), DocumentID: doc.ID, UserID: "admin-1",
			Action: domain.ApprovalActionApprove, CreatedAt: now,
		})
	})
	require.NoError(t, err)

	retrieved, err := docRepo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusApproved, retrieved.Status)

	decisions, err := approvalRepo.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, decisions, 1)
}
