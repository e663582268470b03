package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoray/symposium/internal/agent"
	"github.com/jmoray/symposium/internal/database/repository"
)

// SwarmHandler handles swarm job execution and polling
type SwarmHandler struct {
	swarm    *agent.SwarmManager
	sessions *agent.SessionStore
}

// NewSwarmHandler creates a new swarm handler
func NewSwarmHandler(swarm *agent.SwarmManager, sessions *agent.SessionStore) *SwarmHandler {
	return &SwarmHandler{
		swarm:    swarm,
		sessions: sessions,
	}
}

// RunSwarmRequest represents a swarm run submission
type RunSwarmRequest struct {
	SessionID   string         `json:"sessionId"`
	WorkspaceID string         `json:"workspaceId"`
	Objective   string         `json:"objective"`
	Mode        string         `json:"mode"`
	Prompts     []agent.Prompt `json:"prompts"`
}

// Run executes a swarm job and blocks until every task has settled.
// The response carries exactly one result per submitted prompt, in
// submission order; clients wanting progress subscribe to the session's
// event stream or poll the job endpoint from another connection.
func (h *SwarmHandler) Run(c *fiber.Ctx) error {
	var req RunSwarmRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Objective == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "objective is required",
		})
	}

	// An existing session anchors the run; without one an anonymous
	// session is created so events still have a stream to land on.
	var sess *agent.Session
	if req.SessionID != "" {
		var err error
		sess, err = h.sessions.Get(req.SessionID)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	} else {
		sess = h.sessions.Create(req.WorkspaceID, req.Mode, "", "")
	}

	results, job, err := h.swarm.RunSwarm(c.Context(), sess, req.Objective, req.Mode, req.Prompts)
	if err != nil {
		if errors.Is(err, agent.ErrNoPrompts) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"jobId":   job.ID,
		"status":  job.Status,
		"results": results,
	})
}

// ListJobs returns swarm jobs, newest first
func (h *SwarmHandler) ListJobs(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	jobs, err := h.swarm.Jobs(limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	out := make([]fiber.Map, len(jobs))
	for i, job := range jobs {
		out[i] = jobJSON(job)
	}
	return c.JSON(fiber.Map{
		"jobs":  out,
		"count": len(out),
	})
}

// GetJob returns one job with its tasks in agent-index order. Polling
// it is idempotent: reads never mutate job or task state.
func (h *SwarmHandler) GetJob(c *fiber.Ctx) error {
	job, tasks, err := h.swarm.Job(c.Params("id"))
	if err != nil {
		if errors.Is(err, agent.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	taskList := make([]fiber.Map, len(tasks))
	for i, task := range tasks {
		taskList[i] = taskJSON(task)
	}

	resp := jobJSON(job)
	resp["tasks"] = taskList
	return c.JSON(resp)
}

func jobJSON(job *repository.Job) fiber.Map {
	out := fiber.Map{
		"id":          job.ID,
		"sessionId":   job.SessionID,
		"workspaceId": job.WorkspaceID,
		"objective":   job.Objective,
		"mode":        job.Mode,
		"agentCount":  job.AgentCount,
		"status":      job.Status,
		"createdAt":   job.CreatedAt,
		"updatedAt":   job.UpdatedAt,
	}
	if job.SynthesisResult != "" {
		out["synthesis"] = job.SynthesisResult
	}
	return out
}

func taskJSON(task *repository.Task) fiber.Map {
	out := fiber.Map{
		"id":         task.ID,
		"agentRole":  task.AgentRole,
		"agentIndex": task.AgentIndex,
		"status":     task.Status,
		"tokensUsed": task.TokensUsed,
		"createdAt":  task.CreatedAt,
		"updatedAt":  task.UpdatedAt,
	}
	if task.OutputContent != "" {
		out["output"] = task.OutputContent
	}
	if task.Error != "" {
		out["error"] = task.Error
	}
	return out
}
