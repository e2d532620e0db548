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
	"github.com/rs/zerolog"

	"github.com/V-25K/Guess-sub004/internal/cache"
	"github.com/V-25K/Guess-sub004/internal/config"
	"github.com/V-25K/Guess-sub004/internal/database"
	"github.com/V-25K/Guess-sub004/internal/handlers"
	"github.com/V-25K/Guess-sub004/internal/leaderboard"
	"github.com/V-25K/Guess-sub004/internal/middleware"
	"github.com/V-25K/Guess-sub004/internal/ratelimit"
	"github.com/V-25K/Guess-sub004/internal/repository"
)

var Version = "dev"

// Per-endpoint quotas. Score writes are throttled harder than reads.
var (
	leaderboardPolicy = middleware.Policy{Limit: 60, WindowSeconds: 60}
	pointsPolicy      = middleware.Policy{Limit: 30, WindowSeconds: 60}
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "guess-api").Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Without a Redis address the ranking/limiting layer runs on the
	// in-memory store, which is fine for a single dev instance.
	var store cache.Store = cache.NewMemoryStore()
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		store = cache.NewRedisStore(client)
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, using in-memory store")
	}

	users := repository.NewUserRepository(db)
	ranker := leaderboard.NewRanker(store, users, logger,
		leaderboard.WithScanLimit(cfg.LeaderboardScanLimit))
	limiter := ratelimit.NewLimiter(store, logger)

	// Initialize Gin
	r := gin.Default()

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"version": Version,
		})
	})

	// Version endpoint
	r.GET("/api/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version": Version,
			"service": "guess-api",
		})
	})

	api := r.Group("/api")
	{
		api.GET("/leaderboard",
			middleware.RateLimit(limiter, "leaderboard", leaderboardPolicy),
			handlers.GetLeaderboard(ranker))
		api.GET("/leaderboard/top",
			middleware.RateLimit(limiter, "leaderboard", leaderboardPolicy),
			handlers.GetTopPlayers(ranker))
		api.GET("/users/:id/rank",
			middleware.RateLimit(limiter, "rank", leaderboardPolicy),
			handlers.GetUserRank(ranker))
		api.POST("/users/:id/points",
			middleware.RateLimit(limiter, "points", pointsPolicy),
			handlers.AwardPoints(users, ranker))

		// Scheduler-facing endpoints, not rate limited.
		internal := api.Group("/internal")
		internal.POST("/leaderboard/refresh", handlers.RefreshLeaderboard(ranker))
		internal.DELETE("/leaderboard/users/:id", handlers.RemoveLeaderboardUser(ranker))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
