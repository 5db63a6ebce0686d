package middleware

import (
	"testing"

	"FlowSight/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopMetrics struct{}

func (noopMetrics) RecordTrade(string)                  {}
func (noopMetrics) RecordCandle(string)                 {}
func (noopMetrics) RecordSignal(string, string)         {}
func (noopMetrics) RecordStructureEvent(string, string) {}
func (noopMetrics) RecordError(string)                  {}
func (noopMetrics) RecordLastPrice(string, float64)     {}
func (noopMetrics) RecordLatency(string, float64)       {}

func validTrade(symbol string) models.MarketEvent {
	return models.MarketEvent{
		Symbol: symbol,
		Trade:  &models.Trade{Timestamp: 1700000000000, Price: 100, Quantity: 0.5},
	}
}

func TestGuardAdmitsValidEvents(t *testing.T) {
	g := NewIngestGuard(noopMetrics{})

	ok, err := g.Admit(validTrade("BTCUSDT"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Admit(models.MarketEvent{
		Symbol: "BTCUSDT",
		Candle: &models.Candle{Timestamp: 1700000000000, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10},
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuardRejectsInvalidEvents(t *testing.T) {
	g := NewIngestGuard(noopMetrics{})

	cases := []models.MarketEvent{
		{},
		{Symbol: "BTCUSDT"},
		{Symbol: "BTCUSDT", Trade: &models.Trade{Timestamp: 0, Price: 100, Quantity: 1}},
		{Symbol: "BTCUSDT", Trade: &models.Trade{Timestamp: 1, Price: -1, Quantity: 1}},
		{Symbol: "BTCUSDT", Candle: &models.Candle{Timestamp: 1, High: 99, Low: 100, Volume: 1}},
		{Symbol: "BTCUSDT", Book: &models.BookSnapshot{}},
	}
	for _, ev := range cases {
		ok, err := g.Admit(ev)
		assert.False(t, ok)
		assert.Error(t, err)
	}
}

func TestGuardThrottlesTradeBursts(t *testing.T) {
	g := NewIngestGuard(noopMetrics{}, WithMaxTradesPerSecond(10))

	accepted := 0
	for i := 0; i < 5; i++ {
		ok, err := g.Admit(validTrade("BTCUSDT"))
		require.NoError(t, err)
		if ok {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestGuardThrottleIsPerSymbol(t *testing.T) {
	g := NewIngestGuard(noopMetrics{}, WithMaxTradesPerSecond(10))

	ok, _ := g.Admit(validTrade("BTCUSDT"))
	assert.True(t, ok)
	ok, _ = g.Admit(validTrade("ETHUSDT"))
	assert.True(t, ok)
}

func TestGuardDoesNotThrottleCandles(t *testing.T) {
	g := NewIngestGuard(noopMetrics{}, WithMaxTradesPerSecond(1))

	for i := 0; i < 3; i++ {
		ok, err := g.Admit(models.MarketEvent{
			Symbol: "BTCUSDT",
			Candle: &models.Candle{Timestamp: int64(1700000000000 + i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
		})
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
