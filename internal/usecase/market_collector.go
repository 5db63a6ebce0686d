package usecase

import (
	"context"
	"time"

	"FlowSight/internal/domain/models"
	drepo "FlowSight/internal/domain/repository"
	mid "FlowSight/internal/middleware"
	"FlowSight/pkg/config"
	"FlowSight/pkg/logger"
)

// MarketCollector connects the exchange stream to the per-symbol workers.
// It owns the connection lifecycle: warmup, demux, open-interest polling and
// reconnects.
type MarketCollector struct {
	cfg     config.ExchangeConfig
	log     *logger.Logger
	stream  drepo.MarketStream
	hist    drepo.HistoricalSource
	guard   *mid.IngestGuard
	metrics drepo.Metrics
	workers map[string]*SymbolWorker
}

// NewMarketCollector creates a collector over the given workers.
func NewMarketCollector(
	cfg config.ExchangeConfig,
	log *logger.Logger,
	stream drepo.MarketStream,
	hist drepo.HistoricalSource,
	guard *mid.IngestGuard,
	metrics drepo.Metrics,
	workers []*SymbolWorker,
) *MarketCollector {
	bySymbol := make(map[string]*SymbolWorker, len(workers))
	for _, w := range workers {
		bySymbol[w.Symbol()] = w
	}
	return &MarketCollector{
		cfg:     cfg,
		log:     log,
		stream:  stream,
		hist:    hist,
		guard:   guard,
		metrics: metrics,
		workers: bySymbol,
	}
}

// IsConnected reports the stream connection state.
func (c *MarketCollector) IsConnected() bool { return c.stream.IsConnected() }

// Start warms up the workers, connects the stream and launches all
// goroutines. It returns once the pipeline is running.
func (c *MarketCollector) Start(ctx context.Context) error {
	for _, w := range c.workers {
		if err := w.Warmup(ctx, c.hist, c.cfg.WarmupBars); err != nil {
			// a symbol without history still gets live data
			c.metrics.RecordError("warmup")
			c.log.Warn("warmup failed, continuing without history",
				logger.String("symbol", w.Symbol()),
				logger.Error(err))
		}
	}

	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}

	for _, w := range c.workers {
		go w.Run(ctx)
	}
	for symbol := range c.workers {
		go c.pollOpenInterest(ctx, symbol)
	}
	go c.consume(ctx)
	return nil
}

// Stop closes the stream. Worker goroutines exit with the context.
func (c *MarketCollector) Stop() error { return c.stream.Close() }

func (c *MarketCollector) consume(ctx context.Context) {
	events, errs := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				c.metrics.RecordError("stream")
				c.log.Error("stream error, reconnecting", logger.Error(err))
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					c.log.Error("reconnect failed", logger.Error(rerr))
					select {
					case <-ctx.Done():
						return
					case <-time.After(c.cfg.ReconnectDelay):
					}
					continue
				}
				// the old channels are dead after a reconnect
				events, errs = c.stream.Read(ctx)
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.route(ctx, ev)
		}
	}
}

func (c *MarketCollector) route(ctx context.Context, ev models.MarketEvent) {
	ok, err := c.guard.Admit(ev)
	if err != nil {
		c.log.Debug("event rejected", logger.String("symbol", ev.Symbol), logger.Error(err))
		return
	}
	if !ok {
		return
	}

	w, exists := c.workers[ev.Symbol]
	if !exists {
		return
	}

	// candles block instead of dropping: a lost bar corrupts the cadence every
	// analyzer assumes, while trades and books are lossy by nature
	if ev.Candle != nil {
		if !w.EnqueueWait(ctx, ev) {
			c.metrics.RecordError("worker_backpressure")
		}
		return
	}
	if !w.Enqueue(ev) {
		c.metrics.RecordError("worker_backpressure")
	}
}

func (c *MarketCollector) pollOpenInterest(ctx context.Context, symbol string) {
	if c.cfg.OIPollInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.cfg.OIPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			oi, err := c.hist.OpenInterest(ctx, symbol)
			if err != nil {
				c.metrics.RecordError("oi_poll")
				c.log.Warn("open interest poll failed",
					logger.String("symbol", symbol),
					logger.Error(err))
				continue
			}
			c.route(ctx, models.MarketEvent{Symbol: symbol, OI: &oi})
		}
	}
}
