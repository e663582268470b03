package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PromptTemplate is a named, reusable prompt body, optionally pinned
// to one swarm mode.
type PromptTemplate struct {
	ID          string
	Name        string
	Description string
	Content     string
	Mode        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TemplateRepository handles prompt template database operations
type TemplateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create creates a new template
func (r *TemplateRepository) Create(name, description, content, mode string) (*PromptTemplate, error) {
	id := uuid.New().String()
	now := time.Now()

	_, err := r.db.Exec(
		`INSERT INTO prompt_templates (id, name, description, content, mode, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, description, content, mode, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	return &PromptTemplate{
		ID:          id,
		Name:        name,
		Description: description,
		Content:     content,
		Mode:        mode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetByID retrieves a template by ID
func (r *TemplateRepository) GetByID(id string) (*PromptTemplate, error) {
	return r.getOne(`SELECT id, name, description, content, mode, created_at, updated_at
		 FROM prompt_templates WHERE id = ?`, id)
}

// GetByName retrieves a template by its unique name
func (r *TemplateRepository) GetByName(name string) (*PromptTemplate, error) {
	return r.getOne(`SELECT id, name, description, content, mode, created_at, updated_at
		 FROM prompt_templates WHERE name = ?`, name)
}

func (r *TemplateRepository) getOne(query string, arg interface{}) (*PromptTemplate, error) {
	tpl := &PromptTemplate{}
	var description, mode sql.NullString

	err := r.db.QueryRow(query, arg).Scan(&tpl.ID, &tpl.Name, &description, &tpl.Content, &mode, &tpl.CreatedAt, &tpl.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	tpl.Description = description.String
	tpl.Mode = mode.String

	return tpl, nil
}

// List retrieves all templates, optionally filtered by mode
func (r *TemplateRepository) List(mode string) ([]*PromptTemplate, error) {
	query := `SELECT id, name, description, content, mode, created_at, updated_at
		 FROM prompt_templates ORDER BY name ASC`
	args := []interface{}{}
	if mode != "" {
		query = `SELECT id, name, description, content, mode, created_at, updated_at
		 FROM prompt_templates WHERE mode = ? ORDER BY name ASC`
		args = append(args, mode)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*PromptTemplate
	for rows.Next() {
		tpl := &PromptTemplate{}
		var description, modeVal sql.NullString

		err := rows.Scan(&tpl.ID, &tpl.Name, &description, &tpl.Content, &modeVal, &tpl.CreatedAt, &tpl.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		tpl.Description = description.String
		tpl.Mode = modeVal.String
		templates = append(templates, tpl)
	}

	return templates, nil
}

// Update updates a template's fields
func (r *TemplateRepository) Update(id, name, description, content, mode string) error {
	_, err := r.db.Exec(
		`UPDATE prompt_templates SET name = ?, description = ?, content = ?, mode = ?, updated_at = ? WHERE id = ?`,
		name, description, content, mode, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	return nil
}

// Delete deletes a template
func (r *TemplateRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM prompt_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}
