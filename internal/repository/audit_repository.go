package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/workpulse/workpulse/internal/database"
	"github.com/workpulse/workpulse/internal/models"
)

// AuditRepository is the SQL sink behind the best-effort audit recorder.
type AuditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(_ context.Context, entry *models.AuditLog) error {
	entry.CreatedAt = time.Now()
	id, err := r.db.InsertReturningID(`
		INSERT INTO audit_logs (action, actor_id, affected_user_id, entity,
			entity_id, old_values, new_values, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		entry.Action, entry.ActorID, entry.AffectedUserID, entry.Entity,
		entry.EntityID, entry.OldValues, entry.NewValues, entry.Reason, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	entry.ID = int(id)
	return nil
}

func (r *AuditRepository) ListRecent(limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Query(`
		SELECT id, action, actor_id, affected_user_id, entity, entity_id,
			old_values, new_values, reason, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var items []models.AuditLog
	for rows.Next() {
		var e models.AuditLog
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &e.AffectedUserID,
			&e.Entity, &e.EntityID, &e.OldValues, &e.NewValues, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
