package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/tradepulse-go/internal/cache"
)

// CacheHandler exposes the analysis cache counters and invalidation for
// operators.
type CacheHandler struct {
	cache  *cache.RedisAnalysisCache
	logger *logrus.Logger
}

func NewCacheHandler(analysisCache *cache.RedisAnalysisCache, logger *logrus.Logger) *CacheHandler {
	return &CacheHandler{cache: analysisCache, logger: logger}
}

// GetStats handles GET /api/v1/admin/cache/stats.
func (h *CacheHandler) GetStats(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis cache not configured"})
		return
	}
	c.JSON(http.StatusOK, h.cache.Stats())
}

// Invalidate handles DELETE /api/v1/admin/cache/:symbol.
func (h *CacheHandler) Invalidate(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis cache not configured"})
		return
	}

	symbol := strings.ToUpper(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	h.cache.Invalidate(c.Request.Context(), symbol)
	h.logger.WithField("symbol", symbol).Info("Analysis cache invalidated")
	c.JSON(http.StatusOK, gin.H{"invalidated": symbol})
}
