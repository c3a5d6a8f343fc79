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
	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/tradepulse-go/internal/analysis"
	"github.com/tradepulse/tradepulse-go/internal/api"
	"github.com/tradepulse/tradepulse-go/internal/cache"
	"github.com/tradepulse/tradepulse-go/internal/config"
	"github.com/tradepulse/tradepulse-go/internal/database"
	"github.com/tradepulse/tradepulse-go/internal/marketdata"
	"github.com/tradepulse/tradepulse-go/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// Postgres holds user registrations. The signal pipeline works without
	// it, so a failed connection only disables the user features.
	var db *database.PostgresDB
	if cfg.Database.Host != "" {
		db, err = database.NewPostgresConnection(cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Warn("Database unavailable, user features disabled")
		} else {
			defer db.Close()
		}
	}

	var redis *database.RedisClient
	if cfg.Redis.Host != "" {
		redis, err = database.NewRedisConnection(cfg.Redis, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, analysis caching disabled")
		} else {
			defer redis.Close()
		}
	}

	provider := marketdata.NewClient(&cfg.MarketData, logger)
	retry := analysis.RetryPolicy{
		MaxAttempts: cfg.MarketData.MaxRetries,
		Delay:       cfg.MarketData.RetryDelayDuration(),
	}

	var analysisCache *cache.RedisAnalysisCache
	var resultCache analysis.ResultCache
	if redis != nil {
		analysisCache = cache.NewRedisAnalysisCache(redis.Client, 30*time.Second, logger)
		resultCache = analysisCache
	}
	analysisService := analysis.NewService(provider, cfg.Analysis, retry, resultCache, logger)

	var users *database.UserRepository
	if db != nil {
		users = database.NewUserRepository(db.Pool)
	}
	telegramHandler := telegram.NewHandler(users, analysisService, cfg, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, db, redis, analysisService, analysisCache, telegramHandler, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	registerWebhook(telegramHandler, cfg, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}

// registerWebhook points Telegram at this deployment's webhook route.
// Skipped when the bot is disabled or no public URL is configured.
func registerWebhook(handler *telegram.Handler, cfg *config.Config, logger *logrus.Logger) {
	b := handler.Bot()
	if b == nil || cfg.Telegram.WebhookURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ok, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
		URL: cfg.Telegram.WebhookURL + "/telegram/webhook",
	})
	if err != nil || !ok {
		logger.WithError(err).Warn("Failed to register Telegram webhook")
		return
	}
	logger.WithField("url", cfg.Telegram.WebhookURL).Info("Telegram webhook registered")
}
