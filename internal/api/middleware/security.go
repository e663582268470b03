package middleware

import (
	"os"

	"github.com/gofiber/fiber/v2"
)

// SecurityHeaders adds security headers to responses
func SecurityHeaders() fiber.Handler {
	isProduction := os.Getenv("ENVIRONMENT") == "production"

	return func(c *fiber.Ctx) error {
		// Prevent MIME type sniffing
		c.Set("X-Content-Type-Options", "nosniff")

		// The server renders no UI, so nothing should frame it
		c.Set("X-Frame-Options", "DENY")

		// Referrer policy
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// JSON and WebSocket only; lock everything else down if a browser
		// ever renders a response directly
		c.Set("Content-Security-Policy", "default-src 'none'; connect-src 'self' ws: wss:")

		// Strict Transport Security - enable in production with HTTPS
		if isProduction || c.Protocol() == "https" {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		return c.Next()
	}
}
