package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job statuses. A job only reaches completed once synthesis succeeds;
// individual tasks settle independently.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job represents one swarm run
type Job struct {
	ID                string
	SessionID         string
	WorkspaceID       string
	Objective         string
	Mode              string
	AgentCount        int
	Status            string
	SynthesisResult   string
	SynthesisMetadata string
	SynthesisVersion  int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// JobRepository handles swarm job database operations
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create creates a new job in pending state
func (r *JobRepository) Create(sessionID, workspaceID, objective, mode string, agentCount int) (*Job, error) {
	id := uuid.New().String()
	now := time.Now()

	_, err := r.db.Exec(
		`INSERT INTO swarm_jobs (id, session_id, workspace_id, objective, mode, agent_count, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sessionID, workspaceID, objective, mode, agentCount, JobStatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return &Job{
		ID:          id,
		SessionID:   sessionID,
		WorkspaceID: workspaceID,
		Objective:   objective,
		Mode:        mode,
		AgentCount:  agentCount,
		Status:      JobStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(id string) (*Job, error) {
	job := &Job{}
	var sessionID, workspaceID, synthesisResult, synthesisMetadata sql.NullString

	err := r.db.QueryRow(
		`SELECT id, session_id, workspace_id, objective, mode, agent_count, status,
		        synthesis_result, synthesis_metadata, synthesis_version, created_at, updated_at
		 FROM swarm_jobs WHERE id = ?`,
		id,
	).Scan(&job.ID, &sessionID, &workspaceID, &job.Objective, &job.Mode, &job.AgentCount, &job.Status,
		&synthesisResult, &synthesisMetadata, &job.SynthesisVersion, &job.CreatedAt, &job.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	job.SessionID = sessionID.String
	job.WorkspaceID = workspaceID.String
	job.SynthesisResult = synthesisResult.String
	job.SynthesisMetadata = synthesisMetadata.String

	return job, nil
}

// List retrieves jobs ordered by most recent first
func (r *JobRepository) List(limit, offset int) ([]*Job, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, workspace_id, objective, mode, agent_count, status,
		        synthesis_result, synthesis_metadata, synthesis_version, created_at, updated_at
		 FROM swarm_jobs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job := &Job{}
		var sessionID, workspaceID, synthesisResult, synthesisMetadata sql.NullString

		err := rows.Scan(&job.ID, &sessionID, &workspaceID, &job.Objective, &job.Mode, &job.AgentCount, &job.Status,
			&synthesisResult, &synthesisMetadata, &job.SynthesisVersion, &job.CreatedAt, &job.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}

		job.SessionID = sessionID.String
		job.WorkspaceID = workspaceID.String
		job.SynthesisResult = synthesisResult.String
		job.SynthesisMetadata = synthesisMetadata.String
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// UpdateStatus updates a job's status
func (r *JobRepository) UpdateStatus(id, status string) error {
	_, err := r.db.Exec(
		`UPDATE swarm_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

// SetSynthesis stores a synthesis result and marks the job completed.
// The update only applies if the job's synthesis_version still matches
// expectedVersion; the returned bool reports whether this writer won.
func (r *JobRepository) SetSynthesis(id, result, metadata string, expectedVersion int) (bool, error) {
	res, err := r.db.Exec(
		`UPDATE swarm_jobs
		 SET synthesis_result = ?, synthesis_metadata = ?, synthesis_version = synthesis_version + 1,
		     status = ?, updated_at = ?
		 WHERE id = ? AND synthesis_version = ?`,
		result, metadata, JobStatusCompleted, time.Now(), id, expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("failed to set synthesis: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to set synthesis: %w", err)
	}
	return affected > 0, nil
}

// Delete deletes a job and, via cascade, its tasks
func (r *JobRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM swarm_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}
