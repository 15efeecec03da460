package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/csrental/cees/internal/audit"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogRepository persists audit entries. It satisfies audit.Store.
type AuditLogRepository struct {
	db dbtx
}

func NewAuditLogRepository(pool *pgxpool.Pool) *AuditLogRepository {
	return &AuditLogRepository{db: pool}
}

func (r *AuditLogRepository) Insert(ctx context.Context, entry *audit.Entry) error {
	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, severity, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.UserID, entry.Action, entry.ResourceType,
		nullableString(entry.ResourceID), entry.Severity, details, entry.CreatedAt,
	)
	return err
}
