package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forum-engagement-system/config"
	"forum-engagement-system/handlers"
	"forum-engagement-system/middleware"
	"forum-engagement-system/models"
	"forum-engagement-system/services"
	"forum-engagement-system/utils"
	"forum-engagement-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ config: ", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	badges, levels := services.DefaultBadges, services.DefaultLevels
	if cfg.CatalogFile != "" {
		badges, levels, err = services.LoadCatalogFile(cfg.CatalogFile)
		if err != nil {
			log.Fatal("failed to load catalog file:", err)
		}
		log.Printf("📚 Catalog loaded from %s (%d badges, %d levels)", cfg.CatalogFile, len(badges), len(levels))
	}
	if err := services.SeedCatalog(ctx, db, badges, levels); err != nil {
		log.Fatal("failed to seed catalog:", err)
	}
	if err := services.SeedReportReasons(ctx, db); err != nil {
		log.Fatal("failed to seed report reasons:", err)
	}

	clock := clockwork.NewRealClock()
	gamification := services.NewGamificationService(db, clock, cfg)
	forum := services.NewForumService(db, clock, gamification)
	moderation := services.NewModerationService(db, clock, gamification)
	users := services.NewUserDirectory(db)

	var cache services.Cache
	if cfg.RedisURL != "" {
		redisCache, err := utils.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, leaderboard cache disabled: %v", err)
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}
	leaderboard := services.NewLeaderboardService(gamification.Progression, cache, cfg.LeaderboardTTL)

	streamAuth := middleware.UserContextMiddleware()
	if cfg.AuthServiceURL != "" {
		streamAuth = middleware.StreamAuthMiddleware(services.NewAuthServiceClient(cfg.AuthServiceURL, cfg.ServiceToken))
	}

	backfills := services.NewBackfills(gamification, clock, cfg.Location)
	if err := backfills.Start(); err != nil {
		log.Fatal("failed to start scheduler:", err)
	}

	if cfg.SyncServiceURL != "" {
		syncWorker, err := workers.NewUserSyncWorker(db, cfg.SyncServiceURL, cfg.ServiceToken, time.Minute)
		if err != nil {
			log.Fatal(err)
		}
		syncWorker.Start(ctx)
	} else {
		log.Println("⚠️  SYNC_SERVICE_URL not set, user sync worker disabled")
	}

	app := fiber.New()

	// 🔐❗ GLOBAL: Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	validator := utils.NewValidator()
	handlers.SetupGamificationRoutes(app, gamification, leaderboard, users, streamAuth, validator)
	handlers.SetupForumRoutes(app, forum, validator)
	handlers.SetupModerationRoutes(app, moderation, validator)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ CORS configured for origins: %s", cfg.AllowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := backfills.Shutdown(); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
