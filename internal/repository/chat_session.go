package repository

import (
	"context"
	"errors"
	"time"

	"github.com/csrental/cees/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatSessionRepository struct {
	db dbtx
}

func NewChatSessionRepository(pool *pgxpool.Pool) *ChatSessionRepository {
	return &ChatSessionRepository{db: pool}
}

func (r *ChatSessionRepository) Create(ctx context.Context, s *domain.ChatSession) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_sessions (id, user_id, mode, title, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.Mode, nullableString(s.Title), s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// GetByIDForUser looks up a session scoped to its owner. A session owned
// by someone else is indistinguishable from a missing one.
func (r *ChatSessionRepository) GetByIDForUser(ctx context.Context, id, userID string) (*domain.ChatSession, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, user_id, mode, title, is_active, created_at, updated_at
		 FROM chat_sessions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)

	var s domain.ChatSession
	var title *string
	err := row.Scan(&s.ID, &s.UserID, &s.Mode, &title, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	if title != nil {
		s.Title = *title
	}
	return &s, nil
}

func (r *ChatSessionRepository) UpdateTitle(ctx context.Context, id, title string, now time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chat_sessions SET title = $1, updated_at = $2 WHERE id = $3`,
		title, now, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Touch bumps updated_at so session lists sort by recent activity.
func (r *ChatSessionRepository) Touch(ctx context.Context, id string, now time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`,
		now, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ListByUser returns a user's active sessions, most recently used first.
func (r *ChatSessionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.ChatSession, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, mode, title, is_active, created_at, updated_at
		 FROM chat_sessions WHERE user_id = $1 AND is_active = true
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.ChatSession
	for rows.Next() {
		var s domain.ChatSession
		var title *string
		if err := rows.Scan(&s.ID, &s.UserID, &s.Mode, &title, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if title != nil {
			s.Title = *title
		}
		results = append(results, &s)
	}
	return results, rows.Err()
}
