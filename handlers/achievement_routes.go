package handlers

import (
	"game-progression-service/middleware"
	"game-progression-service/services"
	"game-progression-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SetupAchievementRoutes wires the achievement catalog and unlock endpoints.
func SetupAchievementRoutes(app *fiber.App, jwtSecret string, achievements *services.AchievementService) {
	secured := app.Group("/achievements", middleware.UserContext(jwtSecret))

	secured.Get("/", func(c *fiber.Ctx) error {
		list, err := achievements.ListForUser(userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	})

	secured.Post("/check/:achievementKey", func(c *fiber.Ctx) error {
		result, err := achievements.CheckAndUnlock(userID(c), c.Params("achievementKey"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(result)
	})

	admin := app.Group("/admin/achievements", middleware.UserContext(jwtSecret), middleware.RequireAdmin())

	// Badge icon upload → R2. Stores the public URL on the definition.
	admin.Post("/:achievementKey/icon", func(c *fiber.Ctx) error {
		key := c.Params("achievementKey")
		fileHeader, err := c.FormFile("icon")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "icon file is required"})
		}

		url, err := utils.UploadFileToR2(fileHeader, "badges/"+key+"-"+uuid.NewString()[:8]+".png")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed", "cause": err.Error()})
		}

		if err := achievements.SetIconURL(key, url); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"icon_url": url})
	})
}
