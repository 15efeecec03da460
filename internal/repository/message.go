package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/csrental/cees/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db dbtx
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: pool}
}

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	var metadata []byte
	if m.Metadata != nil {
		var err error
		metadata, err = json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal message metadata: %w", err)
		}
	}

	var tokens *int
	if m.Tokens > 0 {
		tokens = &m.Tokens
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, session_id, role, content, tokens, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.SessionID, m.Role, m.Content, tokens, metadata, m.CreatedAt,
	)
	return err
}

// ListRecentBySession returns the last limit messages of a session in
// chronological order, ready to feed into a completion request.
func (r *MessageRepository) ListRecentBySession(ctx context.Context, sessionID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, role, content, tokens, metadata, created_at FROM (
		    SELECT id, session_id, role, content, tokens, metadata, created_at
		    FROM messages WHERE session_id = $1
		    ORDER BY created_at DESC, id DESC
		    LIMIT $2
		 ) recent ORDER BY created_at ASC, id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Message
	for rows.Next() {
		var m domain.Message
		var tokens *int
		var metadata []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &tokens, &metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		if tokens != nil {
			m.Tokens = *tokens
		}
		if len(metadata) > 0 {
			m.Metadata = &domain.MessageMetadata{}
			if err := json.Unmarshal(metadata, m.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message metadata: %w", err)
			}
		}
		results = append(results, &m)
	}
	return results, rows.Err()
}
