package handlers

import (
	"game-progression-service/middleware"
	"game-progression-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupMissionRoutes wires the mission lifecycle endpoints.
func SetupMissionRoutes(app *fiber.App, jwtSecret string, missions *services.MissionService) {
	secured := app.Group("/missions", middleware.UserContext(jwtSecret))

	secured.Get("/available", func(c *fiber.Ctx) error {
		views, err := missions.ListAvailable(userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(views)
	})

	secured.Post("/:missionID/start", func(c *fiber.Ctx) error {
		result, err := missions.Start(userID(c), c.Params("missionID"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(result)
	})

	secured.Post("/user/:userMissionID/progress", func(c *fiber.Ctx) error {
		var req struct {
			Increment int64 `json:"increment"`
		}
		// Empty body means advance by one.
		_ = c.BodyParser(&req)

		result, err := missions.Advance(userID(c), c.Params("userMissionID"), req.Increment)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(result)
	})

	secured.Post("/user/:userMissionID/claim", func(c *fiber.Ctx) error {
		result, err := missions.Claim(userID(c), c.Params("userMissionID"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "rewards": result})
	})
}
