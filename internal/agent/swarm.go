package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jmoray/symposium/internal/database/repository"
	"github.com/jmoray/symposium/internal/presets"
)

// Prompt is one role-labeled agent prompt submitted to a swarm run.
type Prompt struct {
	Label   string `json:"label"`
	Content string `json:"content"`
}

// SwarmResult is one task's settled outcome. The results slice of a
// run always has exactly one entry per submitted prompt, in submission
// order; a failed task occupies its slot with Error set.
type SwarmResult struct {
	Label      string `json:"label"`
	TaskID     string `json:"task_id"`
	Content    string `json:"content,omitempty"`
	Error      string `json:"error,omitempty"`
	TokensUsed int    `json:"tokens_used,omitempty"`
	Rounds     int    `json:"rounds,omitempty"`
}

// SwarmConfig holds swarm fan-out settings.
type SwarmConfig struct {
	// MaxConcurrent caps concurrently running tasks; 0 means unlimited.
	MaxConcurrent int

	// TaskTimeout bounds one task's wall clock; 0 means no bound
	// beyond the caller's context.
	TaskTimeout time.Duration
}

// SwarmManager fans an objective out to several independent agents.
// Tasks share nothing but the workspace and the append-only task
// table; each one settles on its own and a fault in one never
// disturbs its siblings.
type SwarmManager struct {
	executor *Executor
	jobs     *repository.JobRepository
	tasks    *repository.TaskRepository
	presets  *presets.Library
	events   Publisher
	config   SwarmConfig
}

// NewSwarmManager creates a new swarm manager. events may be nil.
func NewSwarmManager(executor *Executor, jobs *repository.JobRepository, tasks *repository.TaskRepository, lib *presets.Library, events Publisher, config SwarmConfig) *SwarmManager {
	return &SwarmManager{
		executor: executor,
		jobs:     jobs,
		tasks:    tasks,
		presets:  lib,
		events:   events,
		config:   config,
	}
}

func (m *SwarmManager) publish(sessionID string, ev Event) {
	if m.events == nil {
		return
	}
	ev.Timestamp = time.Now()
	m.events.Publish(sessionID, ev)
}

// RunSwarm creates one job with one task per prompt and runs every
// task to a terminal state. The returned slice has exactly one entry
// per prompt, in submission order (results[i].Label ==
// prompts[i].Label), regardless of completion order. When prompts is
// empty they are built from the mode's preset roles.
func (m *SwarmManager) RunSwarm(ctx context.Context, sess *Session, objective, mode string, prompts []Prompt) ([]SwarmResult, *repository.Job, error) {
	if objective == "" {
		return nil, nil, fmt.Errorf("objective is required")
	}
	if len(prompts) == 0 {
		preset, ok := m.presets.Get(mode)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoPrompts, mode)
		}
		for _, role := range preset.Roles {
			prompts = append(prompts, Prompt{Label: role.Label, Content: role.Prompt})
		}
	}

	job, err := m.jobs.Create(sess.ID, sess.WorkspaceID, objective, mode, len(prompts))
	if err != nil {
		return nil, nil, err
	}

	// agent_index is submission order; it is the ordering key for every
	// later presentation of this job's tasks.
	tasks := make([]*repository.Task, len(prompts))
	for i, p := range prompts {
		task, err := m.tasks.Create(job.ID, p.Label, i, composeTaskPrompt(objective, p.Content))
		if err != nil {
			return nil, nil, err
		}
		tasks[i] = task
	}

	if err := m.jobs.UpdateStatus(job.ID, repository.JobStatusRunning); err != nil {
		return nil, nil, err
	}
	job.Status = repository.JobStatusRunning
	m.publish(sess.ID, Event{Type: EventJobStarted, JobID: job.ID, Status: job.Status})

	var sem chan struct{}
	if m.config.MaxConcurrent > 0 {
		sem = make(chan struct{}, m.config.MaxConcurrent)
	}

	results := make([]SwarmResult, len(prompts))
	var wg sync.WaitGroup
	for i := range prompts {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			results[idx] = m.runTask(ctx, sess, mode, tasks[idx])
		}(i)
	}
	wg.Wait()

	completed := 0
	for _, r := range results {
		if r.Error == "" && r.Content != "" {
			completed++
		}
	}
	if completed == 0 {
		if err := m.jobs.UpdateStatus(job.ID, repository.JobStatusFailed); err != nil {
			log.Printf("failed to mark job %s failed: %v", job.ID, err)
		}
		job.Status = repository.JobStatusFailed
	}
	// Otherwise the job stays running; it becomes completed only when
	// synthesis succeeds.
	m.publish(sess.ID, Event{Type: EventJobSettled, JobID: job.ID, Status: job.Status})

	return results, job, nil
}

// runTask executes one task through the turn executor. Every fault —
// transport error, iteration bound, panic — lands in this task's
// error field and nowhere else.
func (m *SwarmManager) runTask(ctx context.Context, sess *Session, mode string, task *repository.Task) (out SwarmResult) {
	out = SwarmResult{Label: task.AgentRole, TaskID: task.ID}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("task panicked: %v", r)
			m.settleFailed(sess.ID, task, msg)
			out.Content = ""
			out.Error = msg
		}
	}()

	if err := m.tasks.MarkRunning(task.ID); err != nil {
		log.Printf("failed to mark task %s running: %v", task.ID, err)
	}
	m.publish(sess.ID, Event{Type: EventTaskStarted, JobID: task.JobID, TaskID: task.ID, Label: task.AgentRole})

	if m.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.TaskTimeout)
		defer cancel()
	}

	// Each task gets a fresh conversation; only the workspace, mode,
	// and tier are shared with the submitting session.
	taskSess := NewSession(sess.WorkspaceID, mode, sess.Tier, taskSystemPrompt(task.AgentRole, mode))

	res, err := m.executor.ExecuteTurn(ctx, taskSess, task.Prompt)
	if err != nil {
		m.settleFailed(sess.ID, task, err.Error())
		out.Error = err.Error()
		return out
	}

	if err := m.tasks.Complete(task.ID, res.Text, res.Usage.TotalTokens); err != nil {
		log.Printf("failed to complete task %s: %v", task.ID, err)
	}
	m.publish(sess.ID, Event{Type: EventTaskCompleted, JobID: task.JobID, TaskID: task.ID, Label: task.AgentRole})

	out.Content = res.Text
	out.TokensUsed = res.Usage.TotalTokens
	out.Rounds = res.Rounds
	return out
}

func (m *SwarmManager) settleFailed(sessionID string, task *repository.Task, msg string) {
	if err := m.tasks.Fail(task.ID, msg); err != nil {
		log.Printf("failed to mark task %s failed: %v", task.ID, err)
	}
	m.publish(sessionID, Event{Type: EventTaskFailed, JobID: task.JobID, TaskID: task.ID, Label: task.AgentRole, Error: msg})
}

// Job returns one job with its tasks in agent_index order. Safe to
// call repeatedly while the job is mid-flight.
func (m *SwarmManager) Job(jobID string) (*repository.Job, []*repository.Task, error) {
	job, err := m.jobs.GetByID(jobID)
	if err != nil {
		return nil, nil, err
	}
	if job == nil {
		return nil, nil, ErrJobNotFound
	}
	tasks, err := m.tasks.ListByJobID(jobID)
	if err != nil {
		return nil, nil, err
	}
	return job, tasks, nil
}

// Jobs lists jobs, most recent first.
func (m *SwarmManager) Jobs(limit, offset int) ([]*repository.Job, error) {
	return m.jobs.List(limit, offset)
}

func composeTaskPrompt(objective, roleInstructions string) string {
	return fmt.Sprintf("Objective: %s\n\n%s", objective, roleInstructions)
}

func taskSystemPrompt(label, mode string) string {
	return fmt.Sprintf(
		"You are %q, one of several agents investigating the same objective independently in a shared workspace (mode: %s). "+
			"Use the available tools to do your own investigation and finish with a self-contained report of your findings. "+
			"Do not coordinate with or wait for the other agents.",
		label, mode)
}
