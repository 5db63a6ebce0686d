package cache

import (
	"context"
	"testing"

	"FlowSight/internal/domain/models"
	"FlowSight/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	snaps := NewSnapshots(cache.NewMemoryCache())
	ctx := context.Background()

	in := models.VWAPData{
		Timestamp: 1700000000000,
		VWAP:      101.5,
		Upper1:    102.0,
		Lower1:    101.0,
		Slope:     0.2,
	}
	require.NoError(t, snaps.SetSnapshot(ctx, "BTCUSDT", KindVWAP, in))

	var out models.VWAPData
	ok, err := snaps.GetSnapshot(ctx, "BTCUSDT", KindVWAP, &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestSnapshotMissReturnsFalse(t *testing.T) {
	snaps := NewSnapshots(cache.NewMemoryCache())

	var out models.TPOProfile
	ok, err := snaps.GetSnapshot(context.Background(), "ETHUSDT", KindProfile, &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotKeysAreSymbolScoped(t *testing.T) {
	snaps := NewSnapshots(cache.NewMemoryCache())
	ctx := context.Background()

	require.NoError(t, snaps.SetSnapshot(ctx, "BTCUSDT", KindOrderFlow, models.OrderFlowMetrics{Delta: 5}))
	require.NoError(t, snaps.SetSnapshot(ctx, "ETHUSDT", KindOrderFlow, models.OrderFlowMetrics{Delta: -3}))

	var btc, eth models.OrderFlowMetrics
	ok, err := snaps.GetSnapshot(ctx, "BTCUSDT", KindOrderFlow, &btc)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = snaps.GetSnapshot(ctx, "ETHUSDT", KindOrderFlow, &eth)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 5.0, btc.Delta)
	assert.Equal(t, -3.0, eth.Delta)
}
