package middleware

import (
	"fmt"
	"sync"
	"time"

	"FlowSight/internal/domain/models"
	domrepo "FlowSight/internal/domain/repository"
)

// IngestGuard sits between the exchange stream and the symbol workers. It
// validates incoming events and throttles the trade firehose per symbol so a
// burst on one symbol cannot starve the rest.
type IngestGuard struct {
	metrics  domrepo.Metrics
	maxTPS   int
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

type GuardOption func(*IngestGuard)

// WithMaxTradesPerSecond caps accepted trades per second per symbol.
func WithMaxTradesPerSecond(n int) GuardOption {
	return func(g *IngestGuard) {
		if n > 0 {
			g.maxTPS = n
		}
	}
}

// NewIngestGuard creates a guard. maxTPS defaults to 50.
func NewIngestGuard(metrics domrepo.Metrics, opts ...GuardOption) *IngestGuard {
	g := &IngestGuard{
		metrics:  metrics,
		maxTPS:   50,
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit validates the event and applies the trade throttle. A false return
// means the event should be dropped; err is non-nil only for invalid events.
func (g *IngestGuard) Admit(ev models.MarketEvent) (bool, error) {
	if err := validateEvent(ev); err != nil {
		g.metrics.RecordError("ingest_validate")
		return false, err
	}
	if ev.Trade != nil && !g.allowTrade(ev.Symbol, time.Now()) {
		g.metrics.RecordError("ingest_throttle")
		return false, nil
	}
	return true, nil
}

func validateEvent(ev models.MarketEvent) error {
	if ev.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	switch {
	case ev.Trade != nil:
		t := ev.Trade
		if t.Timestamp <= 0 {
			return fmt.Errorf("trade timestamp invalid")
		}
		if t.Price <= 0 || t.Quantity <= 0 {
			return fmt.Errorf("trade price/quantity invalid")
		}
	case ev.Candle != nil:
		c := ev.Candle
		if c.Timestamp <= 0 {
			return fmt.Errorf("candle timestamp invalid")
		}
		if c.High < c.Low || c.Low <= 0 || c.Volume < 0 {
			return fmt.Errorf("candle range invalid")
		}
	case ev.Book != nil:
		if len(ev.Book.Bids) == 0 && len(ev.Book.Asks) == 0 {
			return fmt.Errorf("book empty")
		}
	case ev.OI != nil:
		if *ev.OI < 0 {
			return fmt.Errorf("open interest negative")
		}
	default:
		return fmt.Errorf("event empty")
	}
	return nil
}

func (g *IngestGuard) allowTrade(symbol string, now time.Time) bool {
	if g.maxTPS <= 0 {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	last := g.lastSeen[symbol]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(g.maxTPS) {
		return false
	}
	g.lastSeen[symbol] = now
	return true
}
