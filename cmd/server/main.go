package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmoray/symposium/internal/agent"
	"github.com/jmoray/symposium/internal/api/routes"
	"github.com/jmoray/symposium/internal/api/websocket"
	"github.com/jmoray/symposium/internal/config"
	"github.com/jmoray/symposium/internal/database"
	"github.com/jmoray/symposium/internal/database/repository"
	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/llm/anthropic"
	"github.com/jmoray/symposium/internal/llm/google"
	"github.com/jmoray/symposium/internal/llm/ollama"
	"github.com/jmoray/symposium/internal/llm/openai"
	"github.com/jmoray/symposium/internal/presets"
	"github.com/jmoray/symposium/internal/runner"
	"github.com/jmoray/symposium/internal/security"
	"github.com/jmoray/symposium/internal/tools"
	"github.com/jmoray/symposium/internal/tools/analysis"
	"github.com/jmoray/symposium/internal/tools/builtin"
	"github.com/jmoray/symposium/internal/workspace"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.NewSQLite(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Initialize the key vault
	encryptionService, err := security.NewEncryptionService(cfg.MasterKey)
	if err != nil {
		log.Fatalf("Failed to create encryption service: %v", err)
	}
	if cfg.MasterKey == "" {
		log.Println("Warning: MASTER_KEY not set; stored provider keys will not survive a restart")
	}

	// Initialize repositories
	jobRepo := repository.NewJobRepository(db.DB)
	taskRepo := repository.NewTaskRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)
	workspaceRepo := repository.NewWorkspaceRepository(db.DB)
	templateRepo := repository.NewTemplateRepository(db.DB)
	providerKeyRepo := repository.NewProviderKeyRepository(db.DB)

	// Initialize workspaces
	workspaceManager, err := workspace.NewManager(cfg.WorkspaceRoot, cfg.WorkspaceMaxFileSize)
	if err != nil {
		log.Fatalf("Failed to initialize workspace manager: %v", err)
	}

	// Initialize the script runner and analyzer backing the tool catalog
	scriptRunner := runner.NewRunner(&runner.Config{
		Timeout:   cfg.RunnerTimeout,
		MaxOutput: cfg.MaxToolOutput,
	})
	analyzer := analysis.NewAnalyzer(scriptRunner, cfg.PythonBin)

	// Initialize tool registry with built-in tools
	toolRegistry := tools.NewRegistry(auditRepo, cfg.MaxToolOutput)
	if err := builtin.RegisterAll(toolRegistry, builtin.Deps{
		Runner:          scriptRunner,
		Analyzer:        analyzer,
		BacktestCommand: cfg.BacktestCommand,
		BacktestTimeout: cfg.BacktestTimeout,
	}); err != nil {
		log.Fatalf("Failed to register built-in tools: %v", err)
	}
	log.Printf("Registered %d tools", len(toolRegistry.ToolDefinitions()))

	// Initialize LLM manager with the tier routing table
	tiers := map[string]llm.TierRoute{
		"fast":     parseTier(cfg.TierFast),
		"balanced": parseTier(cfg.TierBalanced),
		"deep":     parseTier(cfg.TierDeep),
	}
	llmManager := llm.NewManager(tiers, cfg.DefaultTier)

	// Register LLM providers. Keys may come from the environment now or
	// from the key vault below; either way the provider is registered.
	llmManager.RegisterProvider(anthropic.NewClientWithBaseURL(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL))
	llmManager.RegisterProvider(openai.NewClientWithBaseURL(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL))
	llmManager.RegisterProvider(google.NewClientWithBaseURL(cfg.GoogleAPIKey, cfg.GoogleBaseURL))
	llmManager.RegisterProvider(ollama.NewClient(cfg.OllamaHost))
	log.Printf("Registered %d LLM providers", len(llmManager.ListProviders()))

	// Stored vault keys fill in for providers the environment left
	// unkeyed; an environment key always wins.
	applyStoredKey := func(provider, envKey string) {
		if envKey != "" {
			return
		}
		stored, err := providerKeyRepo.GetKey(provider)
		if err != nil || stored == nil {
			return
		}
		plain, err := encryptionService.Decrypt(stored.EncryptedKey, stored.KeyNonce)
		if err != nil {
			log.Printf("Warning: failed to decrypt stored %s key: %v", provider, err)
			return
		}
		llmManager.SetAPIKey(provider, string(plain))
	}
	applyStoredKey("anthropic", cfg.AnthropicAPIKey)
	applyStoredKey("openai", cfg.OpenAIAPIKey)
	applyStoredKey("google", cfg.GoogleAPIKey)

	// Load mode presets
	presetLibrary, err := presets.Load(cfg.PresetsFile)
	if err != nil {
		log.Fatalf("Failed to load presets: %v", err)
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Initialize the agent layer
	sessionStore := agent.NewSessionStore()
	executor := agent.NewExecutor(llmManager, toolRegistry, workspaceManager, agent.ExecutorConfig{
		MaxTokens:   cfg.AgentMaxTokens,
		Temperature: cfg.AgentTemperature,
	})
	swarmManager := agent.NewSwarmManager(executor, jobRepo, taskRepo, presetLibrary, wsHub, agent.SwarmConfig{
		MaxConcurrent: cfg.SwarmMaxConcurrent,
		TaskTimeout:   cfg.SwarmTaskTimeout,
	})
	synthesizer := agent.NewSynthesizer(llmManager, jobRepo, taskRepo, wsHub, agent.SynthesisConfig{
		MaxTokens: cfg.SynthesisMaxTokens,
	})

	// Setup routes
	app := routes.Setup(routes.Dependencies{
		Config:          cfg,
		Sessions:        sessionStore,
		Executor:        executor,
		Swarm:           swarmManager,
		Synthesizer:     synthesizer,
		LLMManager:      llmManager,
		Registry:        toolRegistry,
		Workspaces:      workspaceManager,
		Presets:         presetLibrary,
		Encryption:      encryptionService,
		WorkspaceRepo:   workspaceRepo,
		AuditRepo:       auditRepo,
		TemplateRepo:    templateRepo,
		ProviderKeyRepo: providerKeyRepo,
		WSHub:           wsHub,
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	// Start server
	addr := cfg.Host + ":" + cfg.Port
	log.Printf("Starting Symposium server on %s", addr)
	log.Printf("Environment: %s", cfg.Environment)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// parseTier splits a "provider:model" route string.
func parseTier(route string) llm.TierRoute {
	provider, model, found := strings.Cut(route, ":")
	if !found {
		return llm.TierRoute{Provider: route}
	}
	return llm.TierRoute{Provider: provider, Model: model}
}
