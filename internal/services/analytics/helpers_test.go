package analytics

import (
	"testing"
	"time"

	"FlowSight/internal/domain/models"
	"FlowSight/pkg/config"
	"FlowSight/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testTPOConfig() config.TPOConfig {
	cfg := config.TPOConfig{
		TickSize:         1,
		SessionStart:     "00:00",
		SessionDuration:  24,
		TimeSliceMinutes: 30,
		ValueAreaPercent: 70,
	}
	cfg.Structure.ProximityTicks = 5
	return cfg
}

func testVWAPConfig() config.VWAPConfig {
	cfg := config.VWAPConfig{
		SessionReset:      "00:00",
		StdDevBands:       []float64{1, 2},
		SlopeLookbackBars: 5,
		SlopeThreshold:    0.01,
	}
	cfg.Pullback.TolerancePercent = 0.1
	cfg.Pullback.ConfirmationBars = 2
	return cfg
}

func testOrderFlowConfig() config.OrderFlowConfig {
	var cfg config.OrderFlowConfig
	cfg.Delta.SignificantThreshold = 1
	cfg.Delta.ConsecutiveBars = 2
	cfg.CVD.TrendLookback = 3
	cfg.CVD.DivergenceThreshold = 0.7
	cfg.OI.SignificantChangePercent = 1.0
	cfg.Imbalance.RatioThreshold = 0.6
	cfg.Imbalance.VolumeThreshold = 50
	cfg.Absorption.VolumeMultiplier = 2.0
	cfg.Absorption.PriceMoveTolerance = 0.05
	cfg.Absorption.LookbackBars = 3
	return cfg
}

func testSignalsConfig() config.SignalsConfig {
	var cfg config.SignalsConfig
	cfg.CooldownSeconds = 300
	cfg.Long.MinConfidence = 0.65
	cfg.Long.VWAPPullbackTolerance = 0.15
	cfg.Short.MinConfidence = 0.65
	cfg.Short.VWAPRejectionTolerance = 0.15
	cfg.Failure.MinConfidence = 0.6
	cfg.Failure.KeyLevelTolerance = 0.2
	return cfg
}

// barAt builds a one-minute candle i minutes after the base session time.
func barAt(i int, price, volume float64) models.Candle {
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
