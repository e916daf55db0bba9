package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"game-progression-service/config"
	"game-progression-service/handlers"
	"game-progression-service/middleware"
	"game-progression-service/models"
	"game-progression-service/services"
	"game-progression-service/utils"
	"game-progression-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // badge icons only
	})

	// When deployed behind the API gateway, every request must carry the
	// shared service token.
	if cfg.GatewayAuthEnabled {
		app.Use(middleware.GatewayAuth(cfg.ServiceToken))
	}

	allowedOriginsList := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}

	if err := db.AutoMigrate(
		&models.UserProfile{},
		&models.XPTransaction{},
		&models.PointsTransaction{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Mission{},
		&models.UserMission{},
		&models.DailyActivity{},
		&models.ReferralCode{},
		&models.Referral{},
		&models.ReferralPayout{},
		&models.ReferralStats{},
		&models.GameUser{},
		&models.CashWallet{},
	); err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	if err := services.SeedDefinitions(db); err != nil {
		log.Fatal("failed to seed achievement/mission definitions: ", err)
	}

	if cfg.R2Configured() {
		if err := utils.InitR2(utils.R2Options{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2Bucket,
			CDNBaseURL:      cfg.R2CDNBaseURL,
		}); err != nil {
			log.Fatal("failed to initialize R2 client: ", err)
		}
	} else {
		log.Println("⚠️  R2 credentials not set, badge icon uploads disabled")
	}

	locks := services.NewUserLocks()
	clock := clockwork.NewRealClock()

	ledgerService := services.NewLedgerService(db, locks, clock)
	achievementService := services.NewAchievementService(db, ledgerService)
	missionService := services.NewMissionService(db, ledgerService, clock)
	streakService := services.NewStreakService(db, ledgerService, clock)
	referralService := services.NewReferralService(db, ledgerService, clock)
	leaderboardService := services.NewLeaderboardService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.UserSyncEnabled && cfg.ProfileServiceURL != "" {
		syncWorker := workers.NewUserSyncWorker(db, cfg.ProfileServiceURL, cfg.ProfileSyncPath, cfg.ServiceToken)
		syncWorker.Start(ctx)
	} else {
		log.Println("⚠️  User sync disabled (PROFILE_SERVICE_URL not set)")
	}

	missionService.StartExpirySweeper()

	handlers.SetupProgressionRoutes(app, cfg.JWTSecret, ledgerService, streakService, leaderboardService)
	handlers.SetupAchievementRoutes(app, cfg.JWTSecret, achievementService)
	handlers.SetupMissionRoutes(app, cfg.JWTSecret, missionService)
	handlers.SetupReferralRoutes(app, cfg.JWTSecret, referralService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Println("✅ Mission expiry sweeper running")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
