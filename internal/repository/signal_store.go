package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"FlowSight/internal/domain/models"
	"FlowSight/internal/domain/repository"
)

// ClickHouseSignalStore persists emitted signals. Scalar columns carry the
// queryable fields; the full event, analyzer snapshots included, rides along
// as a JSON payload column.
type ClickHouseSignalStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseSignalStore creates a ClickHouse-backed signal store.
func NewClickHouseSignalStore(db *sql.DB, table string) repository.SignalStore {
	return &ClickHouseSignalStore{db: db, table: table}
}

func (s *ClickHouseSignalStore) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts DateTime64(3),
		symbol LowCardinality(String),
		signal_type LowCardinality(String),
		price Float64,
		confidence Float64,
		payload String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(ts)
	ORDER BY (symbol, ts)`, s.table)

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init signals table: %w", err)
	}
	return nil
}

func (s *ClickHouseSignalStore) Store(ctx context.Context, sig *models.SignalEvent) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, signal_type, price, confidence, payload) VALUES (?, ?, ?, ?, ?, ?)", s.table)
	_, err = s.db.ExecContext(ctx, q,
		sig.Time(),
		sig.Symbol,
		string(sig.Type),
		sig.Price,
		sig.Confidence,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (s *ClickHouseSignalStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.SignalEvent, error) {
	q := fmt.Sprintf("SELECT payload FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var signals []*models.SignalEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		var sig models.SignalEvent
		if err := json.Unmarshal([]byte(payload), &sig); err != nil {
			return nil, fmt.Errorf("decode signal payload: %w", err)
		}
		signals = append(signals, &sig)
	}
	return signals, rows.Err()
}

func (s *ClickHouseSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSignalStore) Close() error {
	return nil // pool owned by pkg/clickhouse
}

// MemorySignalStore keeps recent signals in memory, used when ClickHouse is
// disabled so the API surface keeps working.
type MemorySignalStore struct {
	mu      sync.Mutex
	max     int
	signals []*models.SignalEvent
}

// NewMemorySignalStore creates an in-memory signal store retaining max rows.
func NewMemorySignalStore(max int) repository.SignalStore {
	return &MemorySignalStore{max: max}
}

func (s *MemorySignalStore) Init(context.Context) error { return nil }

func (s *MemorySignalStore) Store(_ context.Context, sig *models.SignalEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, sig)
	if len(s.signals) > s.max {
		s.signals = s.signals[len(s.signals)-s.max:]
	}
	return nil
}

func (s *MemorySignalStore) Query(_ context.Context, symbol string, from, to time.Time, limit int) ([]*models.SignalEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.SignalEvent
	for i := len(s.signals) - 1; i >= 0 && len(out) < limit; i-- {
		sig := s.signals[i]
		if sig.Symbol != symbol {
			continue
		}
		if sig.Time().Before(from) || sig.Time().After(to) {
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}

func (s *MemorySignalStore) Health(context.Context) error { return nil }
func (s *MemorySignalStore) Close() error                 { return nil }
