package usecase

import (
	"context"
	"fmt"
	"time"

	"FlowSight/internal/domain/models"
	drepo "FlowSight/internal/domain/repository"
	"FlowSight/internal/service/cache"
	"FlowSight/internal/services/analytics"
	"FlowSight/internal/services/features"
	"FlowSight/pkg/config"
	"FlowSight/pkg/logger"
)

// volWindowBars is the realized-volatility window: one hour of 1m bars.
const volWindowBars = 60

// SignalSink receives emitted signals for alerting.
type SignalSink interface {
	HandleSignal(ctx context.Context, s *models.SignalEvent) error
}

// SymbolWorker owns the full analysis chain for one symbol. All analyzer
// state is confined to the worker goroutine; the only way in is Enqueue.
type SymbolWorker struct {
	symbol string
	log    *logger.Logger

	tpo    *analytics.TPOAnalyzer
	vwap   *analytics.VWAPCalculator
	flow   *analytics.OrderFlowAnalyzer
	engine *analytics.SignalEngine
	vol    *features.VolTracker

	publisher drepo.SignalPublisher
	sink      SignalSink
	snaps     drepo.SnapshotCache
	metrics   drepo.Metrics

	events chan models.MarketEvent

	// warmRemaining counts candles still to absorb before signals are live
	warmRemaining int
}

// NewSymbolWorker builds the analyzers for one symbol.
func NewSymbolWorker(
	symbol string,
	cfg *config.Config,
	log *logger.Logger,
	publisher drepo.SignalPublisher,
	sink SignalSink,
	snaps drepo.SnapshotCache,
	metrics drepo.Metrics,
) (*SymbolWorker, error) {
	tpo, err := analytics.NewTPOAnalyzer(symbol, cfg.TPO, log)
	if err != nil {
		return nil, fmt.Errorf("tpo analyzer %s: %w", symbol, err)
	}
	vwap, err := analytics.NewVWAPCalculator(symbol, cfg.VWAP, log)
	if err != nil {
		return nil, fmt.Errorf("vwap calculator %s: %w", symbol, err)
	}

	return &SymbolWorker{
		symbol:    symbol,
		log:       log,
		tpo:       tpo,
		vwap:      vwap,
		flow:      analytics.NewOrderFlowAnalyzer(symbol, cfg.OrderFlow, log),
		engine:    analytics.NewSignalEngine(symbol, cfg.Signals, log),
		vol:       features.NewVolTracker(volWindowBars, features.BarsPerYear1m),
		publisher: publisher,
		sink:      sink,
		snaps:     snaps,
		metrics:   metrics,
		events:    make(chan models.MarketEvent, cfg.Exchange.EventBuffer),
	}, nil
}

func (w *SymbolWorker) Symbol() string { return w.symbol }

// Enqueue hands an event to the worker. Returns false when the buffer is
// full and the event was dropped.
func (w *SymbolWorker) Enqueue(ev models.MarketEvent) bool {
	select {
	case w.events <- ev:
		return true
	default:
		return false
	}
}

// EnqueueWait blocks until the event is accepted or the context ends.
func (w *SymbolWorker) EnqueueWait(ctx context.Context, ev models.MarketEvent) bool {
	select {
	case w.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Warmup replays historical candles through the analyzers with signal
// emission suppressed, so TPO and VWAP state is realistic before live bars
// arrive.
func (w *SymbolWorker) Warmup(ctx context.Context, hist drepo.HistoricalSource, bars int) error {
	if bars <= 0 {
		return nil
	}
	candles, err := hist.Klines(ctx, w.symbol, drepo.TF1m, bars)
	if err != nil {
		return fmt.Errorf("warmup %s: %w", w.symbol, err)
	}

	w.warmRemaining = len(candles)
	for _, c := range candles {
		w.handleCandle(ctx, c)
	}
	w.log.Info("warmup complete",
		logger.String("symbol", w.symbol),
		logger.Int("bars", len(candles)))
	return nil
}

// Run consumes events until the context is cancelled.
func (w *SymbolWorker) Run(ctx context.Context) {
	w.log.Info("symbol worker started", logger.String("symbol", w.symbol))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("symbol worker stopped", logger.String("symbol", w.symbol))
			return
		case ev := <-w.events:
			w.handle(ctx, ev)
		}
	}
}

func (w *SymbolWorker) handle(ctx context.Context, ev models.MarketEvent) {
	switch {
	case ev.Trade != nil:
		w.flow.AddTrade(*ev.Trade)
		w.metrics.RecordTrade(w.symbol)
		w.metrics.RecordLastPrice(w.symbol, ev.Trade.Price)
	case ev.Book != nil:
		w.flow.UpdateFromOrderBook(*ev.Book)
	case ev.OI != nil:
		w.flow.UpdateOI(*ev.OI)
	case ev.Candle != nil:
		w.handleCandle(ctx, *ev.Candle)
	}
}

func (w *SymbolWorker) handleCandle(ctx context.Context, candle models.Candle) {
	start := time.Now()
	w.metrics.RecordCandle(w.symbol)

	prevSession := w.tpo.SessionStart()
	tpoEvent, hasEvent := w.tpo.Update(candle)
	if hasEvent {
		w.metrics.RecordStructureEvent(string(tpoEvent), w.symbol)
	}
	if prevSession != 0 && w.tpo.SessionStart() != prevSession {
		// new session: order flow and failure extremes start fresh
		w.engine.ResetExtremes()
		w.flow.Reset()
	}

	vwapData := w.vwap.Update(candle)
	w.flow.FinalizeBar(candle.Close)
	flowMetrics := w.flow.Metrics(candle.Timestamp)
	w.vol.Observe(candle.Close)

	w.publishSnapshots(ctx, candle.Timestamp, vwapData, flowMetrics)

	if w.warmRemaining > 0 {
		w.warmRemaining--
		return
	}

	signal := w.engine.Check(candle.Timestamp, candle.Close, w.tpo.Profile(),
		eventOrEmpty(tpoEvent, hasEvent), vwapData, flowMetrics)
	if signal != nil {
		w.emitSignal(ctx, signal)
	}

	w.metrics.RecordLatency("candle_close", time.Since(start).Seconds())
}

func eventOrEmpty(ev models.StructureEvent, has bool) models.StructureEvent {
	if !has {
		return ""
	}
	return ev
}

func (w *SymbolWorker) publishSnapshots(ctx context.Context, ts int64, vwapData *models.VWAPData, flow *models.OrderFlowMetrics) {
	if w.snaps == nil {
		return
	}
	if profile := w.tpo.Profile(); profile != nil {
		if err := w.snaps.SetSnapshot(ctx, w.symbol, cache.KindProfile, profile); err != nil {
			w.metrics.RecordError("snapshot_profile")
		}
	}
	if vwapData != nil {
		if err := w.snaps.SetSnapshot(ctx, w.symbol, cache.KindVWAP, vwapData); err != nil {
			w.metrics.RecordError("snapshot_vwap")
		}
	}
	if flow != nil {
		if err := w.snaps.SetSnapshot(ctx, w.symbol, cache.KindOrderFlow, flow); err != nil {
			w.metrics.RecordError("snapshot_orderflow")
		}
	}
	if w.vol.Ready() {
		snap := models.VolatilitySnapshot{
			Timestamp:   ts,
			Symbol:      w.symbol,
			RealizedVol: w.vol.Value(),
			WindowBars:  volWindowBars,
		}
		if err := w.snaps.SetSnapshot(ctx, w.symbol, cache.KindVolatility, &snap); err != nil {
			w.metrics.RecordError("snapshot_volatility")
		}
	}
}

func (w *SymbolWorker) emitSignal(ctx context.Context, signal *models.SignalEvent) {
	w.metrics.RecordSignal(string(signal.Type), w.symbol)

	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, signal); err != nil {
			w.metrics.RecordError("signal_publish")
			w.log.Error("signal publish failed",
				logger.String("symbol", w.symbol),
				logger.Error(err))
		}
	}
	if w.sink != nil {
		if err := w.sink.HandleSignal(ctx, signal); err != nil {
			w.metrics.RecordError("signal_alert")
			w.log.Error("signal alert failed",
				logger.String("symbol", w.symbol),
				logger.Error(err))
		}
	}
}
