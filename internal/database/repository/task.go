package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task statuses
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// Task represents one agent's unit of work within a swarm job.
// agent_index records submission order and is the sort key whenever
// task outputs are presented together.
type Task struct {
	ID            string
	JobID         string
	AgentRole     string
	AgentIndex    int
	Prompt        string
	Status        string
	OutputContent string
	Error         string
	TokensUsed    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TaskRepository handles swarm task database operations
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new task in pending state
func (r *TaskRepository) Create(jobID, agentRole string, agentIndex int, prompt string) (*Task, error) {
	id := uuid.New().String()
	now := time.Now()

	_, err := r.db.Exec(
		`INSERT INTO swarm_tasks (id, job_id, agent_role, agent_index, prompt, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, jobID, agentRole, agentIndex, prompt, TaskStatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return &Task{
		ID:         id,
		JobID:      jobID,
		AgentRole:  agentRole,
		AgentIndex: agentIndex,
		Prompt:     prompt,
		Status:     TaskStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(id string) (*Task, error) {
	task := &Task{}
	var output, errMsg sql.NullString

	err := r.db.QueryRow(
		`SELECT id, job_id, agent_role, agent_index, prompt, status, output_content, error, tokens_used, created_at, updated_at
		 FROM swarm_tasks WHERE id = ?`,
		id,
	).Scan(&task.ID, &task.JobID, &task.AgentRole, &task.AgentIndex, &task.Prompt, &task.Status,
		&output, &errMsg, &task.TokensUsed, &task.CreatedAt, &task.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	task.OutputContent = output.String
	task.Error = errMsg.String

	return task, nil
}

// ListByJobID retrieves all tasks for a job, sorted by agent_index
func (r *TaskRepository) ListByJobID(jobID string) ([]*Task, error) {
	rows, err := r.db.Query(
		`SELECT id, job_id, agent_role, agent_index, prompt, status, output_content, error, tokens_used, created_at, updated_at
		 FROM swarm_tasks WHERE job_id = ? ORDER BY agent_index ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// ListCompletedByJobID retrieves the tasks that completed with
// non-empty output, sorted by agent_index
func (r *TaskRepository) ListCompletedByJobID(jobID string) ([]*Task, error) {
	rows, err := r.db.Query(
		`SELECT id, job_id, agent_role, agent_index, prompt, status, output_content, error, tokens_used, created_at, updated_at
		 FROM swarm_tasks
		 WHERE job_id = ? AND status = ? AND output_content IS NOT NULL AND output_content != ''
		 ORDER BY agent_index ASC`,
		jobID, TaskStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// MarkRunning transitions a task to running
func (r *TaskRepository) MarkRunning(id string) error {
	_, err := r.db.Exec(
		`UPDATE swarm_tasks SET status = ?, updated_at = ? WHERE id = ?`,
		TaskStatusRunning, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark task running: %w", err)
	}
	return nil
}

// Complete stores a task's output and marks it completed
func (r *TaskRepository) Complete(id, output string, tokensUsed int) error {
	_, err := r.db.Exec(
		`UPDATE swarm_tasks SET status = ?, output_content = ?, tokens_used = ?, updated_at = ? WHERE id = ?`,
		TaskStatusCompleted, output, tokensUsed, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return nil
}

// Fail stores a task's error and marks it failed
func (r *TaskRepository) Fail(id, errMsg string) error {
	_, err := r.db.Exec(
		`UPDATE swarm_tasks SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		TaskStatusFailed, errMsg, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to fail task: %w", err)
	}
	return nil
}

// CountByStatus returns task counts per status for a job
func (r *TaskRepository) CountByStatus(jobID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT status, COUNT(*) FROM swarm_tasks WHERE job_id = ? GROUP BY status`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan task count: %w", err)
		}
		counts[status] = count
	}

	return counts, nil
}

func scanTasks(rows *sql.Rows) ([]*Task, error) {
	var tasks []*Task
	for rows.Next() {
		task := &Task{}
		var output, errMsg sql.NullString

		err := rows.Scan(&task.ID, &task.JobID, &task.AgentRole, &task.AgentIndex, &task.Prompt, &task.Status,
			&output, &errMsg, &task.TokensUsed, &task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		task.OutputContent = output.String
		task.Error = errMsg.String
		tasks = append(tasks, task)
	}

	return tasks, nil
}
