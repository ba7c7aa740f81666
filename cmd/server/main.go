package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/config"
	"github.com/isoura4/isrobot-backend/internal/analysis"
	"github.com/isoura4/isrobot-backend/internal/auth"
	"github.com/isoura4/isrobot-backend/internal/database"
	"github.com/isoura4/isrobot-backend/internal/engine"
	"github.com/isoura4/isrobot-backend/internal/handlers"
	"github.com/isoura4/isrobot-backend/internal/intake"
	"github.com/isoura4/isrobot-backend/internal/middleware"
	"github.com/isoura4/isrobot-backend/internal/notify"
	"github.com/isoura4/isrobot-backend/internal/repository"
	"github.com/isoura4/isrobot-backend/internal/scheduler"
	"github.com/isoura4/isrobot-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Server.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.NewPostgresDB(cfg.GetDSN())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("running database migrations")
	if err := database.RunMigrations(db.DB); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis. The service degrades without it: no live events, no intake,
	// enforcement goes to the log only.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	redisAvailable := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, running degraded", zap.Error(err))
		redisAvailable = false
	} else {
		defer redisClient.Close()
	}

	// Repositories
	warningRepo := repository.NewWarningRepository(db)
	muteRepo := repository.NewMuteRepository(db)
	appealRepo := repository.NewAppealRepository(db)
	flagRepo := repository.NewAIFlagRepository(db)
	configRepo := repository.NewGuildConfigRepository(db)
	moderatorRepo := repository.NewModeratorRepository(db)

	// Ports
	var notifier engine.Notifier
	var enforcer engine.Enforcer
	var redisNotifier *notify.RedisNotifier
	if redisAvailable {
		redisNotifier = notify.NewRedisNotifier(redisClient, logger)
		notifier = redisNotifier
		enforcer = notify.NewRedisEnforcer(redisClient, logger)
	} else {
		notifier = notify.NewLogNotifier(logger)
		enforcer = notify.NewLogEnforcer(logger)
	}

	eng := engine.New(
		logger,
		warningRepo,
		muteRepo,
		appealRepo,
		flagRepo,
		configRepo,
		notifier,
		enforcer,
		engine.Options{PortTimeout: cfg.API.PortTimeout},
	)

	// Background jobs
	decayLoop := scheduler.NewLoop("warning-decay", cfg.Scheduler.DecayInterval, logger, eng.DecaySweep)
	expiryLoop := scheduler.NewLoop("mute-expiration", cfg.Scheduler.ExpirationInterval, logger, eng.ExpireMutes)
	go decayLoop.Run(ctx)
	go expiryLoop.Run(ctx)

	// Live event hub and AI intake, Redis-backed
	var wsHandler *ws.Handler
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	if redisAvailable {
		hub := ws.NewHub(redisNotifier, logger)
		go hub.Run(ctx)
		wsHandler = ws.NewHandler(hub, jwtService, logger, cfg.CORS.AllowedOrigins)

		analyzer := analysis.NewClient(logger, cfg.AI.Timeout)
		worker := intake.NewWorker(redisNotifier, analyzer, eng, configRepo, logger, cfg.AI.MaxConcurrent)
		go worker.Run(ctx)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(moderatorRepo, jwtService)
	moderationHandler := handlers.NewModerationHandler(eng)
	appealHandler := handlers.NewAppealHandler(eng)
	flagHandler := handlers.NewAIFlagHandler(eng)
	configHandler := handlers.NewConfigHandler(configRepo)

	rateLimiter := middleware.NewRateLimiter(cfg.API.RateLimitRequestsPerSec)
	rateLimiter.Cleanup()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	if wsHandler != nil {
		router.GET("/ws", wsHandler.HandleWebSocket)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtService))
	api.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		api.GET("/me", authHandler.GetMe)

		// Warning ledger
		api.POST("/guilds/:guild_id/users/:user_id/warnings", moderationHandler.Warn)
		api.DELETE("/guilds/:guild_id/users/:user_id/warnings", moderationHandler.Unwarn)
		api.GET("/guilds/:guild_id/users/:user_id/warnings", moderationHandler.GetWarnings)
		api.GET("/guilds/:guild_id/users/:user_id/history", moderationHandler.GetHistory)
		api.GET("/guilds/:guild_id/modlog", moderationHandler.GetModLog)

		// Mute registry
		api.POST("/guilds/:guild_id/users/:user_id/mute", moderationHandler.Mute)
		api.DELETE("/guilds/:guild_id/users/:user_id/mute", moderationHandler.Unmute)
		api.GET("/guilds/:guild_id/users/:user_id/mute", moderationHandler.GetMute)

		// Appeals
		api.POST("/guilds/:guild_id/appeals", appealHandler.Submit)
		api.GET("/guilds/:guild_id/appeals", appealHandler.ListPending)
		api.POST("/appeals/:id/decision", appealHandler.Decide)

		// AI flag queue
		api.POST("/guilds/:guild_id/flags", flagHandler.Record)
		api.GET("/guilds/:guild_id/flags", flagHandler.ListPending)
		api.POST("/flags/:id/disposition", flagHandler.Dispose)

		// Guild config
		api.GET("/guilds/:guild_id/config", configHandler.Get)
		api.PUT("/guilds/:guild_id/config", configHandler.Update)

		if wsHandler != nil {
			api.GET("/online-moderators", wsHandler.GetOnlineModerators)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Server.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
