// Package marketdata looks up live last prices so the trades view can show
// an unrealized mark next to open positions. Lookups are best-effort: a
// failure degrades the column, it never blocks the journal.
package marketdata

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/piquette/finance-go/quote"

	"github.com/tradescribe/TradeScribe/internal/logging"
)

// QuoteFunc fetches the last traded price for a symbol.
type QuoteFunc func(symbol string) (float64, error)

type cached struct {
	price     float64
	timestamp time.Time
}

// Service caches quotes in memory with a short TTL so rendering a table of
// open positions hits the market data provider at most once per symbol.
type Service struct {
	mu      sync.RWMutex
	entries map[string]cached
	ttl     time.Duration
	fetch   QuoteFunc
	log     *slog.Logger
}

// New creates a quote service backed by Yahoo Finance.
func New(ttl time.Duration) *Service {
	return NewWithFetcher(ttl, yahooQuote)
}

// NewWithFetcher creates a quote service with a custom fetcher (tests).
func NewWithFetcher(ttl time.Duration, fetch QuoteFunc) *Service {
	return &Service{
		entries: make(map[string]cached),
		ttl:     ttl,
		fetch:   fetch,
		log:     logging.New("marketdata"),
	}
}

// LastPrice returns the most recent price for symbol, serving from cache
// while the entry is inside its TTL.
func (s *Service) LastPrice(symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, fmt.Errorf("symbol cannot be empty")
	}

	s.mu.RLock()
	if c, ok := s.entries[symbol]; ok && time.Since(c.timestamp) <= s.ttl {
		s.mu.RUnlock()
		return c.price, nil
	}
	s.mu.RUnlock()

	price, err := s.fetch(symbol)
	if err != nil {
		s.log.Debug("quote lookup failed",
			slog.String("symbol", symbol), slog.String("error", err.Error()))
		return 0, err
	}

	s.mu.Lock()
	s.entries[symbol] = cached{price: price, timestamp: time.Now()}
	s.mu.Unlock()
	return price, nil
}

// Mark computes the unrealized P&L of an open position at the last price.
func (s *Service) Mark(symbol string, entryPrice float64, quantity int64) (float64, error) {
	last, err := s.LastPrice(symbol)
	if err != nil {
		return 0, err
	}
	return (last - entryPrice) * float64(quantity), nil
}

func yahooQuote(symbol string) (float64, error) {
	q, err := quote.Get(symbol)
	if err != nil {
		return 0, err
	}
	if q == nil {
		return 0, fmt.Errorf("no quote for %s", symbol)
	}
	return q.RegularMarketPrice, nil
}
