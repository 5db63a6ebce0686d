package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"FlowSight/internal/domain/models"
	drepo "FlowSight/internal/domain/repository"
	"FlowSight/pkg/config"
	"FlowSight/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (c *captureNotifier) Name() string { return "capture" }

func (c *captureNotifier) Notify(_ context.Context, a *models.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *captureNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

func testAlertsConfig() config.AlertsConfig {
	var cfg config.AlertsConfig
	cfg.DedupWindow = time.Minute
	cfg.MaxAlertsPerHour = 20
	return cfg
}

func signalOf(symbol string, typ models.SignalType, confidence float64) *models.SignalEvent {
	return &models.SignalEvent{
		Timestamp:  time.Now().UnixMilli(),
		Symbol:     symbol,
		Type:       typ,
		Price:      100,
		Confidence: confidence,
	}
}

func newTestManager(t *testing.T, cfg config.AlertsConfig) (*Manager, *captureNotifier) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	capture := &captureNotifier{}
	return NewManager(cfg, log, []drepo.Notifier{capture}, nil), capture
}

func TestAlertDispatchedToNotifiers(t *testing.T) {
	m, capture := newTestManager(t, testAlertsConfig())

	err := m.HandleSignal(context.Background(), signalOf("BTCUSDT", models.SignalLongEntry, 0.8))
	require.NoError(t, err)
	assert.Equal(t, 1, capture.count())
}

func TestDuplicateSignalSuppressed(t *testing.T) {
	m, capture := newTestManager(t, testAlertsConfig())
	ctx := context.Background()

	require.NoError(t, m.HandleSignal(ctx, signalOf("BTCUSDT", models.SignalLongEntry, 0.8)))
	require.NoError(t, m.HandleSignal(ctx, signalOf("BTCUSDT", models.SignalLongEntry, 0.9)))
	assert.Equal(t, 1, capture.count())
}

func TestDifferentTypeNotDeduped(t *testing.T) {
	m, capture := newTestManager(t, testAlertsConfig())
	ctx := context.Background()

	require.NoError(t, m.HandleSignal(ctx, signalOf("BTCUSDT", models.SignalLongEntry, 0.8)))
	require.NoError(t, m.HandleSignal(ctx, signalOf("BTCUSDT", models.SignalShortFailure, 0.8)))
	assert.Equal(t, 2, capture.count())
}

func TestHourlyCapSuppresses(t *testing.T) {
	cfg := testAlertsConfig()
	cfg.MaxAlertsPerHour = 2
	cfg.DedupWindow = time.Nanosecond
	m, capture := newTestManager(t, cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, m.HandleSignal(ctx, signalOf("BTCUSDT", models.SignalLongEntry, 0.8)))
		time.Sleep(2 * time.Nanosecond)
	}
	assert.Equal(t, 2, capture.count())
}

func TestPriorityFromConfidence(t *testing.T) {
	assert.Equal(t, models.PriorityCritical, priorityFor(signalOf("X", models.SignalLongEntry, 0.95)))
	assert.Equal(t, models.PriorityHigh, priorityFor(signalOf("X", models.SignalLongEntry, 0.8)))
	assert.Equal(t, models.PriorityMedium, priorityFor(signalOf("X", models.SignalLongEntry, 0.65)))
	assert.Equal(t, models.PriorityLow, priorityFor(signalOf("X", models.SignalLongEntry, 0.4)))
}

func TestBuildAlertIncludesContext(t *testing.T) {
	s := signalOf("BTCUSDT", models.SignalShortEntry, 0.7)
	s.Conditions.TPOEvent = models.StructureVAHRejection
	s.VWAP = &models.VWAPData{VWAP: 101.2, Slope: -0.3}

	a := BuildAlert(s)
	assert.Contains(t, a.Title, "BTCUSDT")
	assert.Contains(t, a.Title, "SHORT_ENTRY")
	assert.Contains(t, a.Message, "VAH_REJECTION")
	assert.Contains(t, a.Message, "101.2")
	assert.Same(t, s, a.Signal)
}
