// middleware/sse_auth.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSEGatewayAuthMiddleware validates the gateway token from the `token` query
// param. EventSource cannot set an Authorization header, so the stream route
// sits outside the header-based gateway guard and authenticates here instead.
//
// Usage:
//
//	app.Get("/settlement/events/stream", middleware.SSEGatewayAuthMiddleware(), svc.StreamSettlementEventsSSE)
func SSEGatewayAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("SETTLEMENT_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ SETTLEMENT_SERVICE_TOKEN is not set — service cannot authenticate SSE clients")
	}

	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token in query",
			})
		}
		if token != expectedToken {
			log.Printf("❌ [SSE_AUTH] Invalid token for %s (got prefix: %.10s...)", c.Path(), token)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}
