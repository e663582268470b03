package routes

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jmoray/symposium/internal/agent"
	"github.com/jmoray/symposium/internal/api/handlers"
	"github.com/jmoray/symposium/internal/api/middleware"
	ws "github.com/jmoray/symposium/internal/api/websocket"
	"github.com/jmoray/symposium/internal/config"
	"github.com/jmoray/symposium/internal/database/repository"
	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/presets"
	"github.com/jmoray/symposium/internal/security"
	"github.com/jmoray/symposium/internal/tools"
	"github.com/jmoray/symposium/internal/workspace"
)

// Dependencies holds all dependencies needed by the routes
type Dependencies struct {
	Config *config.Config

	Sessions    *agent.SessionStore
	Executor    *agent.Executor
	Swarm       *agent.SwarmManager
	Synthesizer *agent.Synthesizer

	LLMManager *llm.Manager
	Registry   *tools.Registry
	Workspaces *workspace.Manager
	Presets    *presets.Library
	Encryption *security.EncryptionService

	WorkspaceRepo   *repository.WorkspaceRepository
	AuditRepo       *repository.AuditRepository
	TemplateRepo    *repository.TemplateRepository
	ProviderKeyRepo *repository.ProviderKeyRepository

	WSHub *ws.Hub
}

// Setup configures all routes for the application
func Setup(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.Config.CORSAllowedOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
		})
	})

	// Create handlers
	sessionHandler := handlers.NewSessionHandler(deps.Sessions, deps.Executor, deps.Workspaces)
	swarmHandler := handlers.NewSwarmHandler(deps.Swarm, deps.Sessions)
	synthesisHandler := handlers.NewSynthesisHandler(deps.Synthesizer)
	toolsHandler := handlers.NewToolsHandler(deps.Registry)
	presetsHandler := handlers.NewPresetsHandler(deps.Presets)
	templateHandler := handlers.NewTemplateHandler(deps.TemplateRepo)
	workspaceHandler := handlers.NewWorkspaceHandler(deps.Workspaces, deps.WorkspaceRepo, deps.AuditRepo)
	providerHandler := handlers.NewProviderHandler(deps.ProviderKeyRepo, deps.Encryption, deps.LLMManager)

	// API v1 routes
	v1 := app.Group("/api/v1")
	v1.Use(middleware.RateLimiter(deps.Config.RateLimitRequestsPerMinute))

	// Tool catalog and mode presets
	v1.Get("/tools", toolsHandler.List)
	v1.Get("/presets", presetsHandler.List)

	// Sessions and turn execution
	v1.Post("/sessions", sessionHandler.Create)
	v1.Get("/sessions", sessionHandler.List)
	v1.Get("/sessions/:id", sessionHandler.Get)
	v1.Delete("/sessions/:id", sessionHandler.Delete)
	v1.Post("/sessions/:id/reset", sessionHandler.Reset)
	v1.Post("/sessions/:id/turn", sessionHandler.Turn)

	// Swarm jobs
	v1.Post("/swarm", swarmHandler.Run)
	v1.Get("/swarm/jobs", swarmHandler.ListJobs)
	v1.Get("/swarm/jobs/:id", swarmHandler.GetJob)

	// Synthesis
	v1.Post("/synthesis", synthesisHandler.Synthesize)

	// Prompt templates
	v1.Get("/templates", templateHandler.List)
	v1.Post("/templates", templateHandler.Create)
	v1.Get("/templates/:id", templateHandler.Get)
	v1.Put("/templates/:id", templateHandler.Update)
	v1.Delete("/templates/:id", templateHandler.Delete)

	// Workspaces and audit trail
	v1.Get("/workspaces", workspaceHandler.List)
	v1.Post("/workspaces", workspaceHandler.Create)
	v1.Get("/workspaces/:id", workspaceHandler.Get)
	v1.Get("/workspaces/:id/audit", workspaceHandler.Audit)

	// Providers and key vault
	v1.Get("/providers", providerHandler.List)
	v1.Get("/providers/keys", providerHandler.ListKeys)
	strictLimit := middleware.StrictRateLimiter(10, time.Minute)
	v1.Put("/providers/:provider/key", strictLimit, providerHandler.SetKey)
	v1.Delete("/providers/:provider/key", strictLimit, providerHandler.DeleteKey)

	// WebSocket event stream, subscribed by session id
	v1.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	v1.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		sessionID := conn.Query("session")
		if sessionID == "" {
			conn.Close()
			return
		}

		client := ws.NewClient(deps.WSHub, conn, sessionID)
		deps.WSHub.Register(client)

		go client.WritePump()
		client.ReadPump()
	}))

	return app
}

// errorHandler handles errors globally
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
