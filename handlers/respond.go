package handlers

import (
	"errors"

	"game-progression-service/services"

	"github.com/gofiber/fiber/v2"
)

// fail maps domain errors onto HTTP statuses. Anything unrecognized is a
// storage failure whose transaction already rolled back, so the caller may
// retry the whole operation.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInsufficientPoints):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "server error",
			"cause": err.Error(),
		})
	}
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
