package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/workpulse/workpulse/internal/database"
	"github.com/workpulse/workpulse/internal/models"
)

// AttachmentRepository stores leave-request attachment metadata. The ledger
// only lists attachments; the bytes live in external storage keyed by
// StorageKey.
type AttachmentRepository struct {
	db *database.DB
}

func NewAttachmentRepository(db *database.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Insert(a *models.LeaveAttachment) error {
	a.CreateTime = time.Now()
	if a.StorageKey == "" {
		a.StorageKey = uuid.NewString()
	}
	id, err := r.db.InsertReturningID(`
		INSERT INTO leave_attachments (request_id, file_name, content_type,
			size_bytes, storage_key, create_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		a.RequestID, a.FileName, a.ContentType, a.SizeBytes, a.StorageKey, a.CreateTime,
	)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	a.ID = int(id)
	return nil
}

func (r *AttachmentRepository) ListByRequest(requestID int) ([]models.LeaveAttachment, error) {
	rows, err := r.db.Query(`
		SELECT id, request_id, file_name, content_type, size_bytes, storage_key, create_time
		FROM leave_attachments WHERE request_id = $1
		ORDER BY id ASC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var items []models.LeaveAttachment
	for rows.Next() {
		var a models.LeaveAttachment
		if err := rows.Scan(&a.ID, &a.RequestID, &a.FileName, &a.ContentType,
			&a.SizeBytes, &a.StorageKey, &a.CreateTime); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
