package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/tradepulse-go/internal/analysis"
	"github.com/tradepulse/tradepulse-go/internal/api/handlers"
	"github.com/tradepulse/tradepulse-go/internal/cache"
	"github.com/tradepulse/tradepulse-go/internal/database"
	"github.com/tradepulse/tradepulse-go/internal/middleware"
	"github.com/tradepulse/tradepulse-go/internal/telegram"
)

// SetupRoutes registers all HTTP endpoints: the status page, the JSON
// analysis API, the admin cache endpoints and the Telegram webhook.
func SetupRoutes(router *gin.Engine, db *database.PostgresDB, redis *database.RedisClient, analysisService *analysis.Service, analysisCache *cache.RedisAnalysisCache, telegramHandler *telegram.Handler, logger *logrus.Logger) {
	router.Use(middleware.RequestLogger(logger))

	healthHandler := handlers.NewHealthHandler(db, redis)
	router.GET("/health", healthHandler.HealthCheck)
	router.HEAD("/health", healthHandler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		analysisHandler := handlers.NewAnalysisHandler(analysisService, logger)
		v1.GET("/analysis/:symbol", analysisHandler.GetAnalysis)
	}

	adminMiddleware := middleware.NewAdminMiddleware()
	admin := v1.Group("/admin")
	admin.Use(adminMiddleware.RequireAdminAuth())
	{
		cacheHandler := handlers.NewCacheHandler(analysisCache, logger)
		admin.GET("/cache/stats", cacheHandler.GetStats)
		admin.DELETE("/cache/:symbol", cacheHandler.Invalidate)
	}

	if telegramHandler != nil {
		router.POST("/telegram/webhook", telegramHandler.HandleWebhook)
	}
}
