package repository

import (
	"context"
	"time"

	"FlowSight/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.MarketEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// HistoricalSource serves REST-backed lookups: candle history for warmup and
// the latest open-interest value.
type HistoricalSource interface {
	Klines(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
	OpenInterest(ctx context.Context, symbol string) (float64, error)
}

type SignalPublisher interface {
	Publish(ctx context.Context, s *models.SignalEvent) error
	Close() error
}

type SignalStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, s *models.SignalEvent) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.SignalEvent, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Notifier delivers one alert over one channel (console, file, telegram).
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert *models.Alert) error
}

// SnapshotCache shares the latest per-symbol analyzer snapshots with the API
// layer.
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, symbol, kind string, v interface{}) error
	GetSnapshot(ctx context.Context, symbol, kind string, dst interface{}) (bool, error)
}

type Metrics interface {
	RecordTrade(symbol string)
	RecordCandle(symbol string)
	RecordSignal(kind, symbol string)
	RecordStructureEvent(event, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
