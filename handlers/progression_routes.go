package handlers

import (
	"strconv"

	"game-progression-service/middleware"
	"game-progression-service/models"
	"game-progression-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupProgressionRoutes wires profile, ledger, leaderboard and check-in
// endpoints.
func SetupProgressionRoutes(app *fiber.App, jwtSecret string, ledger *services.LedgerService, streak *services.StreakService, leaderboard *services.LeaderboardService) {
	secured := app.Group("/", middleware.UserContext(jwtSecret))

	secured.Get("/user/profile", func(c *fiber.Ctx) error {
		view, err := ledger.Profile(userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(view)
	})

	secured.Get("/user/stats/summary", func(c *fiber.Ctx) error {
		view, err := ledger.Summary(userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(view)
	})

	secured.Get("/user/xp/history", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		entries, err := ledger.XPHistory(userID(c), limit)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(entries)
	})

	secured.Get("/user/points/history", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		entries, err := ledger.PointsHistory(userID(c), limit)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(entries)
	})

	secured.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		view, err := leaderboard.Rank(c.Query("metric", "level"), limit, userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(view)
	})

	secured.Post("/checkin", func(c *fiber.Ctx) error {
		result, err := streak.CheckIn(userID(c))
		if err != nil {
			return fail(c, err)
		}
		if result.AlreadyCheckedIn {
			return c.JSON(fiber.Map{
				"already_checked_in": true,
				"message":            "You have already checked in today",
				"current_streak":     result.NewStreak,
			})
		}
		return c.JSON(result)
	})

	// Admin endpoints — grants from internal tooling.
	admin := app.Group("/admin", middleware.UserContext(jwtSecret), middleware.RequireAdmin())

	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID      string  `json:"user_id"`
			Amount      int64   `json:"amount"`
			SourceType  string  `json:"source_type"`
			SourceID    *string `json:"source_id"`
			Description string  `json:"description"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.SourceType == "" {
			req.SourceType = string(models.SourceManual)
		}
		if req.Description == "" {
			req.Description = "XP added"
		}
		result, err := ledger.GrantXP(req.UserID, req.Amount, models.SourceType(req.SourceType), req.SourceID, req.Description)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(result)
	})

	admin.Post("/points/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID      string  `json:"user_id"`
			Amount      int64   `json:"amount"`
			SourceType  string  `json:"source_type"`
			SourceID    *string `json:"source_id"`
			Description string  `json:"description"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.SourceType == "" {
			req.SourceType = string(models.SourceManual)
		}
		if req.Description == "" {
			req.Description = "Points earned"
		}
		if err := ledger.GrantPoints(req.UserID, req.Amount, models.SourceType(req.SourceType), req.SourceID, req.Description); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "points_gained": req.Amount})
	})

	admin.Get("/ledger/verify/:userID", func(c *fiber.Ctx) error {
		ok, total, err := ledger.VerifyLedger(c.Params("userID"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"consistent": ok, "ledger_total_xp": total})
	})
}
