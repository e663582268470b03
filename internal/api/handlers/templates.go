package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoray/symposium/internal/database/repository"
)

// TemplateHandler handles prompt template CRUD
type TemplateHandler struct {
	templates *repository.TemplateRepository
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templates *repository.TemplateRepository) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// TemplateRequest represents a template create/update body
type TemplateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Mode        string `json:"mode"`
}

// List returns all templates, optionally filtered by mode
func (h *TemplateHandler) List(c *fiber.Ctx) error {
	templates, err := h.templates.List(c.Query("mode"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	out := make([]fiber.Map, len(templates))
	for i, tpl := range templates {
		out[i] = templateJSON(tpl)
	}
	return c.JSON(fiber.Map{
		"templates": out,
		"count":     len(out),
	})
}

// Create creates a new template
func (h *TemplateHandler) Create(c *fiber.Ctx) error {
	var req TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Name == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name and content are required",
		})
	}

	if existing, err := h.templates.GetByName(req.Name); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	} else if existing != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "template name already in use: " + req.Name,
		})
	}

	tpl, err := h.templates.Create(req.Name, req.Description, req.Content, req.Mode)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(templateJSON(tpl))
}

// Get returns one template
func (h *TemplateHandler) Get(c *fiber.Ctx) error {
	tpl, err := h.templates.GetByID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if tpl == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "template not found",
		})
	}
	return c.JSON(templateJSON(tpl))
}

// Update replaces a template's fields
func (h *TemplateHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")

	tpl, err := h.templates.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if tpl == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "template not found",
		})
	}

	var req TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Name == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name and content are required",
		})
	}

	if err := h.templates.Update(id, req.Name, req.Description, req.Content, req.Mode); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	updated, err := h.templates.GetByID(id)
	if err != nil || updated == nil {
		return c.JSON(fiber.Map{"success": true})
	}
	return c.JSON(templateJSON(updated))
}

// Delete removes a template
func (h *TemplateHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	tpl, err := h.templates.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if tpl == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "template not found",
		})
	}

	if err := h.templates.Delete(id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
	})
}

func templateJSON(tpl *repository.PromptTemplate) fiber.Map {
	return fiber.Map{
		"id":          tpl.ID,
		"name":        tpl.Name,
		"description": tpl.Description,
		"content":     tpl.Content,
		"mode":        tpl.Mode,
		"createdAt":   tpl.CreatedAt,
		"updatedAt":   tpl.UpdatedAt,
	}
}
