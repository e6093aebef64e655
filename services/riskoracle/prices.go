package riskoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// PricePair is the two quotes the risk model consumes.
type PricePair struct {
	USD float64 `json:"usd"`
	INR float64 `json:"inr"`
}

// PriceSource resolves the current quote pair for the collateral asset.
type PriceSource interface {
	Quote(ctx context.Context) (PricePair, error)
}

// HTTPPriceSource fetches quotes from a JSON endpoint shaped like
// {"usd": 2000.0, "inr": 165000.0}.
type HTTPPriceSource struct {
	endpoint string
	client   *http.Client
}

// NewHTTPPriceSource builds a source for the given endpoint.
func NewHTTPPriceSource(endpoint string) *HTTPPriceSource {
	return &HTTPPriceSource{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Quote implements the PriceSource interface.
func (s *HTTPPriceSource) Quote(ctx context.Context) (PricePair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return PricePair{}, fmt.Errorf("price source: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return PricePair{}, fmt.Errorf("price source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return PricePair{}, fmt.Errorf("price source: unexpected status %d", resp.StatusCode)
	}
	var pair PricePair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return PricePair{}, fmt.Errorf("price source: decode: %w", err)
	}
	if pair.USD <= 0 || pair.INR <= 0 {
		return PricePair{}, fmt.Errorf("price source: non-positive quote %+v", pair)
	}
	return pair, nil
}

// FallbackPriceSource consults a primary source and substitutes a fixed pair
// when the lookup fails for any reason. The ledger core never sees price
// failures; the score it receives is always backed by some quote.
type FallbackPriceSource struct {
	primary  PriceSource
	fallback PricePair
	log      *slog.Logger
}

// NewFallbackPriceSource wraps primary with the fixed fallback pair. A nil
// primary always serves the fallback.
func NewFallbackPriceSource(primary PriceSource, fallback PricePair, log *slog.Logger) *FallbackPriceSource {
	if log == nil {
		log = slog.Default()
	}
	return &FallbackPriceSource{primary: primary, fallback: fallback, log: log}
}

// Quote implements the PriceSource interface.
func (s *FallbackPriceSource) Quote(ctx context.Context) (PricePair, error) {
	if s.primary != nil {
		pair, err := s.primary.Quote(ctx)
		if err == nil {
			return pair, nil
		}
		s.log.Warn("price lookup failed, using fallback quotes", slog.Any("error", err))
	}
	return s.fallback, nil
}
