package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// WorkspaceRecord registers one workspace id with its on-disk root.
type WorkspaceRecord struct {
	ID        string
	Name      string
	RootPath  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkspaceRepository handles workspace database operations
type WorkspaceRepository struct {
	db *sql.DB
}

// NewWorkspaceRepository creates a new workspace repository
func NewWorkspaceRepository(db *sql.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

// Upsert registers a workspace, updating the name and root on conflict
func (r *WorkspaceRepository) Upsert(id, name, rootPath string) error {
	now := time.Now()
	_, err := r.db.Exec(
		`INSERT INTO workspaces (id, name, root_path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, root_path = excluded.root_path, updated_at = excluded.updated_at`,
		id, name, rootPath, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert workspace: %w", err)
	}
	return nil
}

// GetByID retrieves a workspace by ID
func (r *WorkspaceRepository) GetByID(id string) (*WorkspaceRecord, error) {
	ws := &WorkspaceRecord{}

	err := r.db.QueryRow(
		`SELECT id, name, root_path, created_at, updated_at FROM workspaces WHERE id = ?`,
		id,
	).Scan(&ws.ID, &ws.Name, &ws.RootPath, &ws.CreatedAt, &ws.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	return ws, nil
}

// List retrieves all registered workspaces
func (r *WorkspaceRepository) List() ([]*WorkspaceRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, name, root_path, created_at, updated_at FROM workspaces ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []*WorkspaceRecord
	for rows.Next() {
		ws := &WorkspaceRecord{}
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.RootPath, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, ws)
	}

	return workspaces, nil
}

// Delete removes a workspace registration
func (r *WorkspaceRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	return nil
}
