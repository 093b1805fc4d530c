// middleware/gateway.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware validates the Bearer token from the Gateway. SSE
// clients cannot set headers, so a `token` query param is accepted as a
// fallback when the Authorization header is absent.
func GatewayAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("SETTLEMENT_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ SETTLEMENT_SERVICE_TOKEN is not set — service cannot authenticate Gateway")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			if qt := strings.TrimSpace(c.Query("token")); qt != "" {
				authHeader = qt
			} else {
				log.Printf("🚫 [GATEWAY_AUTH] Missing Authorization header for %s", c.Path())
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "gateway authentication token missing",
				})
			}
		}

		// Parse "Bearer <token>"
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			// no "Bearer " prefix — try raw value (e.g., if Gateway sends raw token)
			token = authHeader
		}

		if token != expectedToken {
			log.Printf("❌ [GATEWAY_AUTH] Invalid token for %s (got prefix: %.10s...)", c.Path(), token)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}

		return c.Next()
	}
}
