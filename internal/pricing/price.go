// Package pricing serves the native asset's USD price with a TTL cache.
package pricing

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/sui-wrapped/internal/config"
	"github.com/sui-wrapped/internal/logging"
)

// FallbackPrice is served when no fetch has ever succeeded
const FallbackPrice = 3.42

// Source fetches a fresh USD price
type Source interface {
	FetchPrice(ctx context.Context) (float64, error)
}

// Service caches the price for a TTL and degrades gracefully: a failed
// refresh serves the stale value, and a wallet that has never seen a
// good fetch gets a fixed fallback rather than an error.
type Service struct {
	source Source
	ttl    time.Duration
	now    func() time.Time
	logger *logging.Logger

	mu        sync.Mutex
	value     float64
	fetchedAt time.Time
}

// NewService creates a price service with the given source and TTL
func NewService(source Source, ttl time.Duration, logger *logging.Logger) *Service {
	return &Service{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// GetPrice returns the cached price, refreshing it once the TTL lapses
func (s *Service) GetPrice(ctx context.Context) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.value
	}

	price, err := s.source.FetchPrice(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("price refresh failed")
		if !s.fetchedAt.IsZero() {
			return s.value
		}
		return FallbackPrice
	}

	s.value = price
	s.fetchedAt = s.now()
	return price
}

// CoinGeckoSource fetches the SUI price from the CoinGecko simple API
type CoinGeckoSource struct {
	httpClient *http.Client
	apiKey     string
}

// NewCoinGeckoSource creates a CoinGecko price source
func NewCoinGeckoSource(cfg config.PricingConfig) *CoinGeckoSource {
	return &CoinGeckoSource{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     cfg.APIKey,
	}
}

const coinGeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=sui&vs_currencies=usd"

// FetchPrice performs one price lookup
func (s *CoinGeckoSource) FetchPrice(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coinGeckoURL, nil)
	if err != nil {
		return 0, err
	}
	if s.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price API returned HTTP %d", resp.StatusCode)
	}

	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}

	price, ok := body["sui"]["usd"]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("price API returned no usable price")
	}
	return price, nil
}
