package shopify

import (
	"context"
	"fmt"
	"sync"

	"nebula-shopify-bridge/internal/ports"

	"github.com/rs/zerolog"
)

// ClientPool caches admin API adapters keyed by credential pair so request
// handlers reuse one adapter per credential set. A rotated secret under the
// same API key gets a fresh adapter.
type ClientPool struct {
	mu      sync.RWMutex
	clients map[string]ports.AdminAPI
	logger  zerolog.Logger
}

// NewClientPool creates an empty pool.
func NewClientPool(logger zerolog.Logger) *ClientPool {
	return &ClientPool{
		clients: make(map[string]ports.AdminAPI),
		logger:  logger,
	}
}

// GetClient returns the cached adapter for the credentials, creating it on
// first use.
func (p *ClientPool) GetClient(_ context.Context, apiKey string, apiSecret string) (ports.AdminAPI, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("api key and secret are required")
	}
	key := apiKey + ":" + apiSecret

	p.mu.RLock()
	existing, ok := p.clients[key]
	p.mu.RUnlock()
	if ok {
		return existing, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.clients[key]; ok {
		return existing, nil
	}

	created := NewClient(apiKey, apiSecret, p.logger)
	p.clients[key] = created
	p.logger.Debug().Str("apiKey", apiKey).Msg("Created admin API client")
	return created, nil
}
