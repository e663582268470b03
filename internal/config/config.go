package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Host        string
	Environment string

	// Database
	DatabaseURL string

	// Security
	MasterKey string

	// Workspaces
	WorkspaceRoot        string
	WorkspaceMaxFileSize int64

	// Providers
	AnthropicAPIKey  string
	AnthropicBaseURL string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	GoogleAPIKey     string
	GoogleBaseURL    string
	OllamaHost       string

	// Tier routing ("provider:model")
	TierFast     string
	TierBalanced string
	TierDeep     string
	DefaultTier  string

	// Agent loop
	AgentMaxTokens   int
	AgentTemperature float64
	MaxToolOutput    int

	// Swarm
	SwarmMaxConcurrent int
	SwarmTaskTimeout   time.Duration

	// Synthesis
	SynthesisMaxTokens int
	PresetsFile        string

	// Script runner
	RunnerTimeout   time.Duration
	PythonBin       string
	BacktestCommand string
	BacktestTimeout time.Duration

	// Rate Limiting
	RateLimitRequestsPerMinute int
	RateLimitBurst             int

	// CORS
	CORSAllowedOrigins string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		// Server defaults
		Port:        getEnv("PORT", "8080"),
		Host:        getEnv("HOST", "0.0.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "./data/symposium.db"),

		// Security
		MasterKey: getEnv("MASTER_KEY", ""),

		// Workspaces
		WorkspaceRoot:        getEnv("WORKSPACE_ROOT", "./data/workspaces"),
		WorkspaceMaxFileSize: getInt64Env("WORKSPACE_MAX_FILE_SIZE", 10*1024*1024), // 10MB

		// Providers
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		GoogleAPIKey:     getEnv("GOOGLE_API_KEY", ""),
		GoogleBaseURL:    getEnv("GOOGLE_BASE_URL", ""),
		OllamaHost:       getEnv("OLLAMA_HOST", "http://localhost:11434"),

		// Tier routing
		TierFast:     getEnv("TIER_FAST", "anthropic:claude-3-5-haiku-latest"),
		TierBalanced: getEnv("TIER_BALANCED", "anthropic:claude-sonnet-4-20250514"),
		TierDeep:     getEnv("TIER_DEEP", "anthropic:claude-opus-4-20250514"),
		DefaultTier:  getEnv("DEFAULT_TIER", "balanced"),

		// Agent loop
		AgentMaxTokens:   getIntEnv("AGENT_MAX_TOKENS", 4096),
		AgentTemperature: getFloatEnv("AGENT_TEMPERATURE", 0.7),
		MaxToolOutput:    getIntEnv("MAX_TOOL_OUTPUT", 30000),

		// Swarm
		SwarmMaxConcurrent: getIntEnv("SWARM_MAX_CONCURRENT", 4),
		SwarmTaskTimeout:   getDurationEnv("SWARM_TASK_TIMEOUT", 10*time.Minute),

		// Synthesis
		SynthesisMaxTokens: getIntEnv("SYNTHESIS_MAX_TOKENS", 8192),
		PresetsFile:        getEnv("PRESETS_FILE", ""),

		// Script runner
		RunnerTimeout:   getDurationEnv("RUNNER_TIMEOUT", 30*time.Second),
		PythonBin:       getEnv("PYTHON_BIN", "python3"),
		BacktestCommand: getEnv("BACKTEST_COMMAND", ""),
		BacktestTimeout: getDurationEnv("BACKTEST_TIMEOUT", 5*time.Minute),

		// Rate Limiting
		RateLimitRequestsPerMinute: getIntEnv("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
		RateLimitBurst:             getIntEnv("RATE_LIMIT_BURST", 10),

		// CORS
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
