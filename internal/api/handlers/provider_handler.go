package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoray/symposium/internal/database/repository"
	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/security"
)

// ProviderHandler handles the provider listing and the key vault
type ProviderHandler struct {
	keys       *repository.ProviderKeyRepository
	encryption *security.EncryptionService
	llmManager *llm.Manager
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(keys *repository.ProviderKeyRepository, encryption *security.EncryptionService, llmManager *llm.Manager) *ProviderHandler {
	return &ProviderHandler{
		keys:       keys,
		encryption: encryption,
		llmManager: llmManager,
	}
}

// List returns the registered providers and the tier routing table
func (h *ProviderHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"providers": h.llmManager.ListProviders(),
		"tiers":     h.llmManager.Tiers(),
	})
}

// SetKeyRequest represents a request to store an API key
type SetKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// SetKey encrypts and stores an API key for a provider, and applies it
// to the live provider instance
func (h *ProviderHandler) SetKey(c *fiber.Ctx) error {
	provider := c.Params("provider")
	if _, err := h.llmManager.GetProvider(provider); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown provider: " + provider,
		})
	}

	var req SetKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "apiKey is required",
		})
	}

	encryptedKey, nonce, err := h.encryption.Encrypt([]byte(req.APIKey))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to encrypt API key",
		})
	}

	if err := h.keys.SetKey(provider, encryptedKey, nonce); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to save API key",
		})
	}

	// Apply to the running provider so the key works without a restart
	applied := h.llmManager.SetAPIKey(provider, req.APIKey)

	return c.JSON(fiber.Map{
		"success": true,
		"applied": applied,
	})
}

// DeleteKey removes a provider's stored key. The running provider keeps
// its current key until restart.
func (h *ProviderHandler) DeleteKey(c *fiber.Ctx) error {
	provider := c.Params("provider")

	if err := h.keys.DeleteKey(provider); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete API key",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

// ListKeys returns which providers have a stored key. The keys
// themselves never leave the vault.
func (h *ProviderHandler) ListKeys(c *fiber.Ctx) error {
	keys, err := h.keys.ListKeys()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list API keys",
		})
	}

	providers := make([]string, len(keys))
	for i, key := range keys {
		providers[i] = key.Provider
	}

	return c.JSON(fiber.Map{
		"providers": providers,
	})
}
