package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoray/symposium/internal/tools"
)

// ToolsHandler exposes the tool catalog
type ToolsHandler struct {
	registry *tools.Registry
}

// NewToolsHandler creates a new tools handler
func NewToolsHandler(registry *tools.Registry) *ToolsHandler {
	return &ToolsHandler{registry: registry}
}

// List returns the wire-ready tool definitions, exactly as a provider
// would receive them
func (h *ToolsHandler) List(c *fiber.Ctx) error {
	defs := h.registry.ToolDefinitions()
	return c.JSON(fiber.Map{
		"tools": defs,
		"count": len(defs),
	})
}
