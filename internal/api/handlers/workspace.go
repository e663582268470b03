package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoray/symposium/internal/database/repository"
	"github.com/jmoray/symposium/internal/workspace"
)

// WorkspaceHandler handles workspace registration and the audit trail
type WorkspaceHandler struct {
	manager *workspace.Manager
	records *repository.WorkspaceRepository
	audit   *repository.AuditRepository
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(manager *workspace.Manager, records *repository.WorkspaceRepository, audit *repository.AuditRepository) *WorkspaceHandler {
	return &WorkspaceHandler{
		manager: manager,
		records: records,
		audit:   audit,
	}
}

// CreateWorkspaceRequest represents a workspace registration
type CreateWorkspaceRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Create registers a workspace and materializes its directory
func (h *WorkspaceHandler) Create(c *fiber.Ctx) error {
	var req CreateWorkspaceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id is required",
		})
	}

	ws, err := h.manager.Get(req.ID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	name := req.Name
	if name == "" {
		name = ws.ID
	}
	if err := h.records.Upsert(ws.ID, name, ws.Root); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	rec, err := h.records.GetByID(ws.ID)
	if err != nil || rec == nil {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":       ws.ID,
			"name":     name,
			"rootPath": ws.Root,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(workspaceJSON(rec))
}

// List returns all registered workspaces
func (h *WorkspaceHandler) List(c *fiber.Ctx) error {
	records, err := h.records.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	out := make([]fiber.Map, len(records))
	for i, rec := range records {
		out[i] = workspaceJSON(rec)
	}
	return c.JSON(fiber.Map{
		"workspaces": out,
		"count":      len(out),
	})
}

// Get returns one workspace record
func (h *WorkspaceHandler) Get(c *fiber.Ctx) error {
	rec, err := h.records.GetByID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if rec == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "workspace not found",
		})
	}
	return c.JSON(workspaceJSON(rec))
}

// Audit returns the workspace's mutation trail, newest first. An
// optional path filter narrows it to one file's history.
func (h *WorkspaceHandler) Audit(c *fiber.Ctx) error {
	id := c.Params("id")
	limit, _ := strconv.Atoi(c.Query("limit", "100"))

	var (
		records []*repository.AuditRecord
		err     error
	)
	if path := c.Query("path"); path != "" {
		records, err = h.audit.ListByPath(id, path, limit)
	} else {
		records, err = h.audit.ListByWorkspace(id, limit)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	out := make([]fiber.Map, len(records))
	for i, rec := range records {
		out[i] = fiber.Map{
			"id":        rec.ID,
			"operation": rec.Operation,
			"path":      rec.Path,
			"detail":    rec.Detail,
			"createdAt": rec.CreatedAt,
		}
	}
	return c.JSON(fiber.Map{
		"workspaceId": id,
		"entries":     out,
		"count":       len(out),
	})
}

func workspaceJSON(rec *repository.WorkspaceRecord) fiber.Map {
	return fiber.Map{
		"id":        rec.ID,
		"name":      rec.Name,
		"rootPath":  rec.RootPath,
		"createdAt": rec.CreatedAt,
		"updatedAt": rec.UpdatedAt,
	}
}
