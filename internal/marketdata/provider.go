package marketdata

import (
	"context"
	"sync"

	"github.com/tradepulse/tradepulse-go/internal/models"
)

// Provider supplies OHLCV history for a symbol. Implementations are
// read-only and make no caching guarantee; repeated calls may re-fetch.
//
// Fetch returns a validated, non-empty PriceSeries or one of the typed
// errors in this package: *NoDataError when the provider answered without
// usable bars, *ProviderError for transport-level failures.
type Provider interface {
	Fetch(ctx context.Context, symbol string, lookbackMinutes int) (*models.PriceSeries, error)
}

// SingleFlightProvider serializes concurrent fetches for the same symbol.
// Duplicate in-flight fetches waste provider quota without changing
// correctness, so later callers wait for the slot instead of dialing out.
type SingleFlightProvider struct {
	provider Provider

	mu       sync.Mutex
	inFlight map[string]*sync.Mutex
}

// NewSingleFlightProvider wraps a provider with per-symbol serialization.
func NewSingleFlightProvider(provider Provider) *SingleFlightProvider {
	return &SingleFlightProvider{
		provider: provider,
		inFlight: make(map[string]*sync.Mutex),
	}
}

func (p *SingleFlightProvider) Fetch(ctx context.Context, symbol string, lookbackMinutes int) (*models.PriceSeries, error) {
	lock := p.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &ProviderError{Symbol: symbol, Err: err}
	}
	return p.provider.Fetch(ctx, symbol, lookbackMinutes)
}

func (p *SingleFlightProvider) symbolLock(symbol string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.inFlight[symbol]
	if !ok {
		lock = &sync.Mutex{}
		p.inFlight[symbol] = lock
	}
	return lock
}
