package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoray/symposium/internal/agent"
	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/workspace"
)

// SessionHandler handles session lifecycle and turn execution
type SessionHandler struct {
	sessions   *agent.SessionStore
	executor   *agent.Executor
	workspaces *workspace.Manager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *agent.SessionStore, executor *agent.Executor, workspaces *workspace.Manager) *SessionHandler {
	return &SessionHandler{
		sessions:   sessions,
		executor:   executor,
		workspaces: workspaces,
	}
}

// CreateSessionRequest represents a request to create a session
type CreateSessionRequest struct {
	WorkspaceID string `json:"workspaceId"`
	Mode        string `json:"mode"`
	Tier        string `json:"tier"`
	System      string `json:"system"`
}

// Create creates a new session bound to a workspace
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	// Materializes the workspace directory and validates the id
	ws, err := h.workspaces.Get(req.WorkspaceID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	sess := h.sessions.Create(ws.ID, req.Mode, req.Tier, req.System)
	return c.Status(fiber.StatusCreated).JSON(sessionJSON(sess))
}

// List returns all sessions, most recently active first
func (h *SessionHandler) List(c *fiber.Ctx) error {
	sessions := h.sessions.List()

	out := make([]fiber.Map, len(sessions))
	for i, sess := range sessions {
		out[i] = sessionJSON(sess)
	}
	return c.JSON(fiber.Map{
		"sessions": out,
		"count":    len(out),
	})
}

// Get returns one session
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(sessionJSON(sess))
}

// Reset clears a session's conversation history
func (h *SessionHandler) Reset(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	sess.Reset()
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// Delete removes a session
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	if err := h.sessions.Delete(c.Params("id")); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// TurnRequest represents one user message for a bounded turn
type TurnRequest struct {
	Content string `json:"content"`
}

// Turn runs one bounded tool-use turn against the session's tier
func (h *SessionHandler) Turn(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var req TurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "content is required",
		})
	}

	result, err := h.executor.ExecuteTurn(c.Context(), sess, req.Content)
	if err != nil {
		var bound *agent.IterationBoundError
		if errors.As(err, &bound) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": bound.Error(),
			})
		}
		var transport *llm.TransportError
		if errors.As(err, &transport) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": transport.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(result)
}

func sessionJSON(sess *agent.Session) fiber.Map {
	return fiber.Map{
		"id":          sess.ID,
		"workspaceId": sess.WorkspaceID,
		"mode":        sess.Mode,
		"tier":        sess.Tier,
		"messages":    sess.Len(),
		"createdAt":   sess.CreatedAt,
		"updatedAt":   sess.UpdatedAt,
	}
}
