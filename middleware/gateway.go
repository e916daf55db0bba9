package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuth validates the shared-secret header set by the API gateway.
// Optional: enabled only when a service token is configured, for deployments
// where this engine sits behind the gateway rather than on the edge.
func GatewayAuth(serviceToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get("X-Service-Token")
		if got == "" {
			log.Printf("🚫 [GATEWAY_AUTH] Missing X-Service-Token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}
		if got != serviceToken {
			log.Printf("❌ [GATEWAY_AUTH] Invalid service token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}
		return c.Next()
	}
}
