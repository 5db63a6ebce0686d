package usecase

import (
	"context"
	"testing"
	"time"

	"FlowSight/internal/domain/models"
	drepo "FlowSight/internal/domain/repository"
	"FlowSight/internal/repository"
	svccache "FlowSight/internal/service/cache"
	"FlowSight/pkg/cache"
	"FlowSight/pkg/config"
	"FlowSight/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nullMetrics struct{}

func (nullMetrics) RecordTrade(string)                  {}
func (nullMetrics) RecordCandle(string)                 {}
func (nullMetrics) RecordSignal(string, string)         {}
func (nullMetrics) RecordStructureEvent(string, string) {}
func (nullMetrics) RecordError(string)                  {}
func (nullMetrics) RecordLastPrice(string, float64)     {}
func (nullMetrics) RecordLatency(string, float64)       {}

type captureSink struct {
	signals []*models.SignalEvent
}

func (c *captureSink) HandleSignal(_ context.Context, s *models.SignalEvent) error {
	c.signals = append(c.signals, s)
	return nil
}

type fakeHistory struct {
	candles []models.Candle
	oi      float64
}

func (f *fakeHistory) Klines(_ context.Context, _ string, _ drepo.Timeframe, limit int) ([]models.Candle, error) {
	if limit > len(f.candles) {
		limit = len(f.candles)
	}
	return f.candles[:limit], nil
}

func (f *fakeHistory) OpenInterest(context.Context, string) (float64, error) {
	return f.oi, nil
}

func workerConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Exchange.EventBuffer = 16
	cfg.TPO = config.TPOConfig{
		TickSize:         1,
		SessionStart:     "00:00",
		SessionDuration:  24,
		TimeSliceMinutes: 30,
		ValueAreaPercent: 70,
	}
	cfg.TPO.Structure.ProximityTicks = 5
	cfg.VWAP = config.VWAPConfig{
		SessionReset:      "00:00",
		StdDevBands:       []float64{1, 2},
		SlopeLookbackBars: 5,
		SlopeThreshold:    0.01,
	}
	cfg.VWAP.Pullback.TolerancePercent = 0.1
	cfg.VWAP.Pullback.ConfirmationBars = 2
	cfg.OrderFlow.Delta.SignificantThreshold = 1
	cfg.OrderFlow.Delta.ConsecutiveBars = 2
	cfg.OrderFlow.CVD.TrendLookback = 3
	cfg.OrderFlow.CVD.DivergenceThreshold = 0.7
	cfg.OrderFlow.OI.SignificantChangePercent = 1.0
	cfg.OrderFlow.Imbalance.RatioThreshold = 0.6
	cfg.OrderFlow.Imbalance.VolumeThreshold = 50
	cfg.OrderFlow.Absorption.VolumeMultiplier = 2.0
	cfg.OrderFlow.Absorption.PriceMoveTolerance = 0.05
	cfg.OrderFlow.Absorption.LookbackBars = 3
	cfg.Signals.CooldownSeconds = 300
	cfg.Signals.Long.MinConfidence = 0.65
	cfg.Signals.Long.VWAPPullbackTolerance = 0.15
	cfg.Signals.Short.MinConfidence = 0.65
	cfg.Signals.Short.VWAPRejectionTolerance = 0.15
	cfg.Signals.Failure.MinConfidence = 0.6
	cfg.Signals.Failure.KeyLevelTolerance = 0.2
	return cfg
}

func newTestWorker(t *testing.T) (*SymbolWorker, *captureSink, drepo.SignalStore, drepo.SnapshotCache) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	store := repository.NewMemorySignalStore(100)
	sink := &captureSink{}
	snaps := svccache.NewSnapshots(cache.NewMemoryCache())

	w, err := NewSymbolWorker("BTCUSDT", workerConfig(), log,
		repository.NewStoreSignalPublisher(store), sink, snaps, nullMetrics{})
	require.NoError(t, err)
	return w, sink, store, snaps
}

func candleAt(i int, price, volume float64) models.Candle {
	base := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC).UnixMilli()
	return models.Candle{
		Timestamp: base + int64(i)*60_000,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    volume,
	}
}

func TestWarmupSuppressesSignals(t *testing.T) {
	w, sink, store, _ := newTestWorker(t)

	hist := &fakeHistory{}
	for i := 0; i < 10; i++ {
		hist.candles = append(hist.candles, candleAt(i, 100+float64(i%3), 50))
	}

	require.NoError(t, w.Warmup(context.Background(), hist, 10))

	assert.Empty(t, sink.signals)
	got, err := store.Query(context.Background(), "BTCUSDT",
		time.Unix(0, 0), time.Now().Add(time.Hour), 100)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, w.tpo.Profile())
	assert.NotNil(t, w.vwap.Data())
}

func TestCandleClosePublishesSnapshots(t *testing.T) {
	w, _, _, snaps := newTestWorker(t)
	ctx := context.Background()

	w.handleCandle(ctx, candleAt(0, 100, 50))

	var profile models.TPOProfile
	ok, err := snaps.GetSnapshot(ctx, "BTCUSDT", svccache.KindProfile, &profile)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100.0, profile.POC)

	var vwap models.VWAPData
	ok, err = snaps.GetSnapshot(ctx, "BTCUSDT", svccache.KindVWAP, &vwap)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100.0, vwap.VWAP)

	var flow models.OrderFlowMetrics
	ok, err = snaps.GetSnapshot(ctx, "BTCUSDT", svccache.KindOrderFlow, &flow)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVolatilitySnapshotRequiresFullWindow(t *testing.T) {
	w, _, _, snaps := newTestWorker(t)
	ctx := context.Background()

	var vol models.VolatilitySnapshot
	for i := 0; i < volWindowBars; i++ {
		w.handleCandle(ctx, candleAt(i, 100+float64(i%2), 50))
	}
	ok, err := snaps.GetSnapshot(ctx, "BTCUSDT", svccache.KindVolatility, &vol)
	require.NoError(t, err)
	assert.False(t, ok)

	w.handleCandle(ctx, candleAt(volWindowBars, 101, 50))
	ok, err = snaps.GetSnapshot(ctx, "BTCUSDT", svccache.KindVolatility, &vol)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Greater(t, vol.RealizedVol, 0.0)
	assert.Equal(t, volWindowBars, vol.WindowBars)
}

func TestTradesFlowIntoDeltaAtBarClose(t *testing.T) {
	w, _, _, _ := newTestWorker(t)
	ctx := context.Background()

	w.handle(ctx, models.MarketEvent{
		Symbol: "BTCUSDT",
		Trade:  &models.Trade{Timestamp: 1, Price: 100, Quantity: 3, BuyerMaker: false},
	})
	w.handle(ctx, models.MarketEvent{
		Symbol: "BTCUSDT",
		Trade:  &models.Trade{Timestamp: 2, Price: 100, Quantity: 1, BuyerMaker: true},
	})
	w.handle(ctx, models.MarketEvent{Symbol: "BTCUSDT", Candle: ptrCandle(candleAt(0, 100, 4))})

	m := w.flow.Metrics(0)
	assert.InDelta(t, 2.0, m.Delta, 1e-9)
	assert.InDelta(t, 2.0, m.CumulativeDelta, 1e-9)
}

func TestOpenInterestEventReachesFlow(t *testing.T) {
	w, _, _, _ := newTestWorker(t)
	ctx := context.Background()

	oi := 1000.0
	w.handle(ctx, models.MarketEvent{Symbol: "BTCUSDT", OI: &oi})
	oi2 := 1010.0
	w.handle(ctx, models.MarketEvent{Symbol: "BTCUSDT", OI: &oi2})

	m := w.flow.Metrics(0)
	assert.InDelta(t, 1010.0, m.OpenInterest, 1e-9)
	assert.InDelta(t, 10.0, m.OIChange, 1e-9)
	assert.InDelta(t, 1.0, m.OIChangePercent, 1e-9)
}

func TestEmitSignalReachesPublisherAndSink(t *testing.T) {
	w, sink, store, _ := newTestWorker(t)
	ctx := context.Background()

	sig := &models.SignalEvent{
		Timestamp:  time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC).UnixMilli(),
		Symbol:     "BTCUSDT",
		Type:       models.SignalLongEntry,
		Price:      100,
		Confidence: 0.8,
	}
	w.emitSignal(ctx, sig)

	require.Len(t, sink.signals, 1)
	got, err := store.Query(ctx, "BTCUSDT", time.Unix(0, 0), time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.SignalLongEntry, got[0].Type)
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	w, _, _, _ := newTestWorker(t)

	ev := models.MarketEvent{Symbol: "BTCUSDT", Trade: &models.Trade{Timestamp: 1, Price: 1, Quantity: 1}}
	accepted := 0
	for i := 0; i < 100; i++ {
		if w.Enqueue(ev) {
			accepted++
		}
	}
	// buffer is 16 and nothing is draining
	assert.Equal(t, 16, accepted)
}

func ptrCandle(c models.Candle) *models.Candle { return &c }
