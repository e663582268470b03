package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoray/symposium/internal/agent"
	"github.com/jmoray/symposium/internal/llm"
)

// SynthesisHandler handles synthesis requests
type SynthesisHandler struct {
	synthesizer *agent.Synthesizer
}

// NewSynthesisHandler creates a new synthesis handler
func NewSynthesisHandler(synthesizer *agent.Synthesizer) *SynthesisHandler {
	return &SynthesisHandler{synthesizer: synthesizer}
}

// SynthesizeRequest represents a synthesis request
type SynthesizeRequest struct {
	JobID             string `json:"jobId"`
	ForceResynthesize bool   `json:"forceResynthesize"`
}

// Synthesize combines a job's completed task outputs into one answer.
// Repeat calls without the force flag return the cached result without
// touching the backend.
func (h *SynthesisHandler) Synthesize(c *fiber.Ctx) error {
	var req SynthesizeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.JobID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "jobId is required",
		})
	}

	result, err := h.synthesizer.Synthesize(c.Context(), req.JobID, req.ForceResynthesize)
	if err != nil {
		if errors.Is(err, agent.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if errors.Is(err, agent.ErrSynthesisPrecondition) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
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

	return c.JSON(fiber.Map{
		"jobId":            result.JobID,
		"synthesis":        result.Synthesis,
		"tasksSynthesized": result.TasksSynthesized,
		"tokensUsed":       result.TokensUsed,
		"mode":             result.Mode,
		"cached":           result.Cached,
	})
}
