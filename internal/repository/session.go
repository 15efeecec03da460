package repository

import (
	"context"
	"errors"
	"time"

	"github.com/csrental/cees/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserSessionRepository stores minted session tokens by hash.
type UserSessionRepository struct {
	db dbtx
}

func NewUserSessionRepository(pool *pgxpool.Pool) *UserSessionRepository {
	return &UserSessionRepository{db: pool}
}

func (r *UserSessionRepository) Create(ctx context.Context, s *domain.UserSession) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_sessions (id, user_id, role, token_hash, created_at, expires_at, revoked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.Role, s.TokenHash, s.CreatedAt, s.ExpiresAt, s.RevokedAt,
	)
	return err
}

func (r *UserSessionRepository) GetByHash(ctx context.Context, hash string) (*domain.UserSession, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, user_id, role, token_hash, created_at, expires_at, revoked_at
		 FROM user_sessions WHERE token_hash = $1`,
		hash,
	)

	var s domain.UserSession
	err := row.Scan(&s.ID, &s.UserID, &s.Role, &s.TokenHash, &s.CreatedAt, &s.ExpiresAt, &s.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *UserSessionRepository) Revoke(ctx context.Context, id string, now time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE user_sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		now, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrUserSessionNotFound
	}
	return nil
}
