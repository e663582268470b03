package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoray/symposium/internal/presets"
)

// PresetsHandler exposes the swarm mode presets
type PresetsHandler struct {
	library *presets.Library
}

// NewPresetsHandler creates a new presets handler
func NewPresetsHandler(library *presets.Library) *PresetsHandler {
	return &PresetsHandler{library: library}
}

// List returns every mode with its preset roles
func (h *PresetsHandler) List(c *fiber.Ctx) error {
	modes := h.library.List()
	return c.JSON(fiber.Map{
		"modes": modes,
		"count": len(modes),
	})
}
