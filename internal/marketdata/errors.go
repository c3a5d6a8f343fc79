package marketdata

import (
	"errors"
	"fmt"
)

// NoDataError means the provider was reached but returned no usable series,
// e.g. the market is closed or the symbol is unknown. It is not retried.
type NoDataError struct {
	Symbol string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no market data available for %s", e.Symbol)
}

// ProviderError is a transient provider failure: network, auth, rate limit
// or a 5xx from the sidecar. The fetch boundary retries these.
type ProviderError struct {
	Symbol     string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider request for %s failed with status %d: %v", e.Symbol, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider request for %s failed: %v", e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// InsufficientDataError means a fetched series is shorter than an
// indicator window requires. It is scoped to a single timeframe.
type InsufficientDataError struct {
	TimeframeMinutes int
	Required         int
	Got              int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %dm timeframe: need %d bars, got %d",
		e.TimeframeMinutes, e.Required, e.Got)
}

// IsNoData reports whether err is a NoDataError anywhere in its chain.
func IsNoData(err error) bool {
	var target *NoDataError
	return errors.As(err, &target)
}

// IsProviderError reports whether err is a ProviderError anywhere in its chain.
func IsProviderError(err error) bool {
	var target *ProviderError
	return errors.As(err, &target)
}

// IsInsufficientData reports whether err is an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}
