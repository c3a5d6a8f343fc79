package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/tradepulse-go/internal/analysis"
	"github.com/tradepulse/tradepulse-go/internal/models"
)

// AnalysisHandler exposes the signal pipeline over HTTP for dashboards and
// smoke tests. The Telegram layer is the primary consumer of the pipeline;
// this endpoint serves the same structured result as JSON.
type AnalysisHandler struct {
	service *analysis.Service
	logger  *logrus.Logger
}

func NewAnalysisHandler(service *analysis.Service, logger *logrus.Logger) *AnalysisHandler {
	return &AnalysisHandler{service: service, logger: logger}
}

// GetAnalysis handles GET /api/v1/analysis/:symbol?timeframes=5,15.
// A fetch-level failure maps to 502 (provider) or 404 (no data); partial
// per-timeframe failures still return 200 with the outcome map.
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	timeframes := h.service.Timeframes()
	if raw := c.Query("timeframes"); raw != "" {
		parsed, err := parseTimeframeList(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		timeframes = parsed
	}

	result := h.service.Analyze(c.Request.Context(), symbol, timeframes)
	if result.Failed() {
		h.logger.WithFields(logrus.Fields{
			"symbol": symbol,
			"error":  result.Error,
		}).Warn("Analysis request failed")

		status := http.StatusBadGateway
		switch result.ErrorKind {
		case models.ErrorKindNoData:
			status = http.StatusNotFound
		case models.ErrorKindCancelled:
			status = http.StatusRequestTimeout
		}
		c.JSON(status, gin.H{"error": result.Error, "error_kind": result.ErrorKind, "symbol": symbol})
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTimeframeList(raw string) ([]int, error) {
	var timeframes []int
	for _, part := range strings.Split(raw, ",") {
		tf, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || tf <= 0 {
			return nil, &invalidTimeframeError{raw: part}
		}
		timeframes = append(timeframes, tf)
	}
	return timeframes, nil
}

type invalidTimeframeError struct {
	raw string
}

func (e *invalidTimeframeError) Error() string {
	return "invalid timeframe value: " + e.raw
}
