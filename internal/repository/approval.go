package repository

import (
	"context"

	"github.com/csrental/cees/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ApprovalRepository struct {
	db dbtx
}

func NewApprovalRepository(pool *pgxpool.Pool) *ApprovalRepository {
	return &ApprovalRepository{db: pool}
}

func NewApprovalRepositoryWithTx(tx dbtx) *ApprovalRepository {
	return &ApprovalRepository{db: tx}
}

func (r *ApprovalRepository) Create(ctx context.Context, a *domain.DocumentApproval) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO document_approvals (id, document_id, user_id, action, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.DocumentID, a.UserID, a.Action, nullableString(a.Reason), a.CreatedAt,
	)
	return err
}

// ListByDocument returns the decision history for a document, oldest first.
func (r *ApprovalRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.DocumentApproval, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, user_id, action, reason, created_at
		 FROM document_approvals WHERE document_id = $1 ORDER BY created_at ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.DocumentApproval
	for rows.Next() {
		var a domain.DocumentApproval
		var reason *string
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.UserID, &a.Action, &reason, &a.CreatedAt); err != nil {
			return nil, err
		}
		if reason != nil {
			a.Reason = *reason
		}
		results = append(results, &a)
	}
	return results, rows.Err()
}
