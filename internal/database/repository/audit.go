package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one append-only entry describing a mutating
// filesystem operation. Records are never updated or deleted.
type AuditRecord struct {
	ID          string
	WorkspaceID string
	Operation   string
	Path        string
	Detail      string
	CreatedAt   time.Time
}

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends one audit entry
func (r *AuditRepository) Record(workspaceID, operation, path, detail string) error {
	_, err := r.db.Exec(
		`INSERT INTO audit_log (id, workspace_id, operation, path, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), workspaceID, operation, path, detail, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// ListByWorkspace retrieves recent audit entries for a workspace
func (r *AuditRepository) ListByWorkspace(workspaceID string, limit int) ([]*AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(
		`SELECT id, workspace_id, operation, path, detail, created_at
		 FROM audit_log WHERE workspace_id = ? ORDER BY created_at DESC LIMIT ?`,
		workspaceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var records []*AuditRecord
	for rows.Next() {
		rec := &AuditRecord{}
		var detail sql.NullString

		err := rows.Scan(&rec.ID, &rec.WorkspaceID, &rec.Operation, &rec.Path, &detail, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		rec.Detail = detail.String
		records = append(records, rec)
	}

	return records, nil
}

// ListByPath retrieves the audit history of one path in a workspace
func (r *AuditRepository) ListByPath(workspaceID, path string, limit int) ([]*AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(
		`SELECT id, workspace_id, operation, path, detail, created_at
		 FROM audit_log WHERE workspace_id = ? AND path = ? ORDER BY created_at DESC LIMIT ?`,
		workspaceID, path, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var records []*AuditRecord
	for rows.Next() {
		rec := &AuditRecord{}
		var detail sql.NullString

		err := rows.Scan(&rec.ID, &rec.WorkspaceID, &rec.Operation, &rec.Path, &detail, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		rec.Detail = detail.String
		records = append(records, rec)
	}

	return records, nil
}
