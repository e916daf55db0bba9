package handlers

import (
	"strconv"

	"game-progression-service/middleware"
	"game-progression-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupReferralRoutes wires referral codes, milestones and the referral
// leaderboard. Validation is public: new users check codes before they have a
// token.
func SetupReferralRoutes(app *fiber.App, jwtSecret string, referrals *services.ReferralService) {
	app.Post("/referral/validate", func(c *fiber.Ctx) error {
		var req struct {
			ReferralCode string `json:"referral_code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		result, err := referrals.Validate(req.ReferralCode)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(result)
	})

	secured := app.Group("/referral", middleware.UserContext(jwtSecret))

	secured.Get("/code", func(c *fiber.Ctx) error {
		code, err := referrals.GetOrGenerateCode(userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"referral_code": code.Code,
			"total_uses":    code.TotalUses,
		})
	})

	secured.Get("/stats", func(c *fiber.Ctx) error {
		view, err := referrals.Stats(userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(view)
	})

	secured.Post("/apply", func(c *fiber.Ctx) error {
		var req struct {
			ReferralCode string `json:"referral_code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		result, err := referrals.Apply(userID(c), req.ReferralCode)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"success":     true,
			"message":     "Referral code applied successfully",
			"referrer_id": result.ReferrerID,
		})
	})

	secured.Post("/milestone", func(c *fiber.Ctx) error {
		var req struct {
			MilestoneType  string  `json:"milestone_type"`
			MilestoneValue float64 `json:"milestone_value"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		result, err := referrals.TriggerMilestone(userID(c), req.MilestoneType, req.MilestoneValue)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(result)
	})

	secured.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		view, err := referrals.Leaderboard(c.Query("period", "all_time"), limit, userID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(view)
	})
}
