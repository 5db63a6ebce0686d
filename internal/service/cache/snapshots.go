package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	drepo "FlowSight/internal/domain/repository"
	"FlowSight/pkg/cache"
)

// Snapshot kinds shared between the symbol workers and the API layer.
const (
	KindProfile    = "profile"
	KindVWAP       = "vwap"
	KindOrderFlow  = "orderflow"
	KindVolatility = "volatility"
)

// snapshotTTL bounds staleness when a worker dies without cleanup.
const snapshotTTL = 10 * time.Minute

// Snapshots implements SnapshotCache on top of a cache.Service, so the same
// code runs against Redis in production and the in-memory cache in tests.
// Values are stored as JSON strings, the one representation both backends
// round-trip unchanged.
type Snapshots struct {
	svc cache.Service
}

func NewSnapshots(svc cache.Service) drepo.SnapshotCache {
	return &Snapshots{svc: svc}
}

func snapshotKey(symbol, kind string) string {
	return cache.GenerateKeyWithParams("snap", symbol, kind)
}

func (s *Snapshots) SetSnapshot(ctx context.Context, symbol, kind string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s/%s: %w", symbol, kind, err)
	}
	if err := s.svc.Set(ctx, snapshotKey(symbol, kind), string(b), snapshotTTL); err != nil {
		return fmt.Errorf("set snapshot %s/%s: %w", symbol, kind, err)
	}
	return nil
}

func (s *Snapshots) GetSnapshot(ctx context.Context, symbol, kind string, dst interface{}) (bool, error) {
	var raw string
	err := s.svc.Get(ctx, snapshotKey(symbol, kind), &raw)
	if errors.Is(err, cache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get snapshot %s/%s: %w", symbol, kind, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode snapshot %s/%s: %w", symbol, kind, err)
	}
	return true, nil
}
