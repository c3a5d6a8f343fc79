package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradepulse/tradepulse-go/internal/config"
	"github.com/tradepulse/tradepulse-go/internal/models"
)

// Client fetches OHLCV candles from the market data sidecar over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

// ohlcvResponse is the sidecar's candle payload.
type ohlcvResponse struct {
	Symbol string       `json:"symbol"`
	Bars   []models.Bar `json:"bars"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient creates a market data client for the configured sidecar.
func NewClient(cfg *config.MarketDataConfig, logger *logrus.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 8 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimSuffix(cfg.ServiceURL, "/"),
		logger:  logger,
	}
}

// Fetch retrieves up to lookbackMinutes of one-minute candles for symbol.
// An answered request without bars maps to *NoDataError; everything at the
// transport level maps to *ProviderError.
func (c *Client) Fetch(ctx context.Context, symbol string, lookbackMinutes int) (*models.PriceSeries, error) {
	path := fmt.Sprintf("/api/v1/ohlcv/%s", url.PathEscape(symbol))
	params := url.Values{}
	if lookbackMinutes > 0 {
		params.Set("minutes", strconv.Itoa(lookbackMinutes))
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &ProviderError{Symbol: symbol, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "TradePulse-Go/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Symbol: symbol, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Failed to close provider response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Symbol: symbol, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NoDataError{Symbol: symbol}
	}
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return nil, &ProviderError{Symbol: symbol, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", errResp.Error)}
		}
		return nil, &ProviderError{Symbol: symbol, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", string(respBody))}
	}

	var payload ohlcvResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, &ProviderError{Symbol: symbol, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(payload.Bars) == 0 {
		return nil, &NoDataError{Symbol: symbol}
	}

	series := &models.PriceSeries{Symbol: symbol, Bars: payload.Bars}
	if err := series.Validate(); err != nil {
		return nil, &ProviderError{Symbol: symbol, Err: fmt.Errorf("provider returned malformed series: %w", err)}
	}

	c.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"bars":   len(payload.Bars),
	}).Debug("Fetched price series")

	return series, nil
}
