package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/fpl-optimizer/internal/api"
	"github.com/jstittsworth/fpl-optimizer/internal/api/handlers"
	"github.com/jstittsworth/fpl-optimizer/internal/api/middleware"
	"github.com/jstittsworth/fpl-optimizer/internal/optimizer"
	"github.com/jstittsworth/fpl-optimizer/internal/providers"
	"github.com/jstittsworth/fpl-optimizer/internal/services"
	"github.com/jstittsworth/fpl-optimizer/pkg/config"
	"github.com/jstittsworth/fpl-optimizer/pkg/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	logger := logrus.StandardLogger()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis. Production cannot run uncached; development can.
	var redisClient *redis.Client
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient = redis.NewClient(opt)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		if cfg.IsProduction() {
			logrus.Fatalf("Failed to connect to Redis: %v", err)
		}
		logrus.Warnf("Redis unavailable, running without cache: %v", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Initialize services
	cacheService := services.NewCacheService(redisClient)
	hub := services.NewWebSocketHub(logger)
	go hub.Run()

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	fplClient := providers.NewFPLClient(
		cfg.FPLBaseURL,
		time.Duration(cfg.FPLRateLimitSeconds)*time.Second,
		cfg.ExternalAPITimeout,
		cacheTTL,
		cacheService,
		logger,
	)
	footballClient := providers.NewFootballDataClient(
		cfg.FootballDataBaseURL,
		cfg.FootballDataAPIKey,
		cfg.ExternalAPITimeout,
		cacheTTL,
		cacheService,
		logger,
	)

	syncService := services.NewSyncService(db, fplClient, footballClient, logger)

	selectorCfg := optimizer.DefaultSelectorConfig()
	if cfg.PremiumPicks > 0 {
		selectorCfg.PremiumPicks = cfg.PremiumPicks
	}
	if cfg.QualityMinPrice > 0 {
		selectorCfg.MinPrice = cfg.QualityMinPrice
	}
	if cfg.QualityMinOwnership > 0 {
		selectorCfg.MinOwnership = cfg.QualityMinOwnership
	}
	constraints := optimizer.DefaultConstraints()
	if cfg.SquadBudget > 0 {
		constraints.Budget = cfg.SquadBudget
	}
	if cfg.TeamCap > 0 {
		constraints.TeamCap = cfg.TeamCap
	}
	recommender := services.NewRecommendationService(db, cacheService, logger, selectorCfg, constraints, cacheTTL)

	notifier := services.NewDeadlineNotifier(
		db,
		newSMSSender(cfg, logger),
		hub,
		logger,
		cfg.DeadlineReminderLead,
		cfg.AlertPhoneNumbers,
	)

	refresher := services.NewRefresherService(
		db,
		syncService,
		recommender,
		notifier,
		hub,
		logger,
		cfg.RefreshInterval,
		!cfg.SkipInitialSync,
	)
	if cfg.EnableBackgroundJobs {
		if err := refresher.Start(); err != nil {
			logrus.Fatalf("Failed to start refresher: %v", err)
		}
		defer refresher.Stop()
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	healthHandler := handlers.NewHealthHandler(db, redisClient)
	router.GET("/health", healthHandler.GetHealth)

	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, db, cacheService, cfg, refresher, recommender)

	// The websocket upgrade lives at the root, outside the versioned API.
	wsHandler := handlers.NewWebSocketHandler(hub, logger)
	router.GET("/ws", middleware.OptionalAuth(cfg.JWTSecret), wsHandler.HandleWebSocket)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down")

	// Give in-flight requests five seconds to drain.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Forced shutdown: %v", err)
	}

	logrus.Info("Shutdown complete")
}

// newSMSSender picks the deadline-reminder transport. Anything but a fully
// configured Twilio account falls back to the console mock.
func newSMSSender(cfg *config.Config, logger *logrus.Logger) services.SMSSender {
	if cfg.SMSProvider == "twilio" && cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		limiter := services.NewSMSRateLimiter(5, time.Hour)
		return services.NewTwilioSMSSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, limiter, logger)
	}
	return services.NewMockSMSSender()
}
