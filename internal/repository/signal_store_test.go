package repository

import (
	"context"
	"testing"
	"time"

	"FlowSight/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memSignal(symbol string, ts int64, typ models.SignalType) *models.SignalEvent {
	return &models.SignalEvent{Timestamp: ts, Symbol: symbol, Type: typ, Price: 100, Confidence: 0.7}
}

func TestMemoryStoreQueryFiltersSymbolAndWindow(t *testing.T) {
	store := NewMemorySignalStore(100)
	ctx := context.Background()

	base := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Store(ctx, memSignal("BTCUSDT", base.UnixMilli(), models.SignalLongEntry)))
	require.NoError(t, store.Store(ctx, memSignal("ETHUSDT", base.Add(time.Minute).UnixMilli(), models.SignalShortEntry)))
	require.NoError(t, store.Store(ctx, memSignal("BTCUSDT", base.Add(2*time.Hour).UnixMilli(), models.SignalShortFailure)))

	got, err := store.Query(ctx, "BTCUSDT", base.Add(-time.Minute), base.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.SignalLongEntry, got[0].Type)
}

func TestMemoryStoreNewestFirstAndLimit(t *testing.T) {
	store := NewMemorySignalStore(100)
	ctx := context.Background()

	base := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Store(ctx, memSignal("BTCUSDT", base.Add(time.Duration(i)*time.Minute).UnixMilli(), models.SignalLongEntry)))
	}

	got, err := store.Query(ctx, "BTCUSDT", base.Add(-time.Hour), base.Add(time.Hour), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, base.Add(4*time.Minute).UnixMilli(), got[0].Timestamp)
	assert.Equal(t, base.Add(3*time.Minute).UnixMilli(), got[1].Timestamp)
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	store := NewMemorySignalStore(3)
	ctx := context.Background()

	base := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Store(ctx, memSignal("BTCUSDT", base.Add(time.Duration(i)*time.Minute).UnixMilli(), models.SignalLongEntry)))
	}

	got, err := store.Query(ctx, "BTCUSDT", base.Add(-time.Hour), base.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, base.Add(2*time.Minute).UnixMilli(), got[2].Timestamp)
}
