package usecase

import (
	"context"
	"encoding/json"
	"time"

	"FlowSight/internal/domain/models"
	domrepo "FlowSight/internal/domain/repository"
	pkgkafka "FlowSight/pkg/kafka"
)

// SignalsPersistHandler consumes signals from Kafka and writes them to the
// signal store.
type SignalsPersistHandler struct {
	topic   string
	store   domrepo.SignalStore
	metrics domrepo.Metrics
}

func NewSignalsPersistHandler(topic string, store domrepo.SignalStore, metrics domrepo.Metrics) *SignalsPersistHandler {
	return &SignalsPersistHandler{topic: topic, store: store, metrics: metrics}
}

func (h *SignalsPersistHandler) Topic() string { return h.topic }

func (h *SignalsPersistHandler) Handle(ctx context.Context, b []byte) error {
	var sig models.SignalEvent
	if err := json.Unmarshal(b, &sig); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	// end-to-end latency from signal emission to persistence
	h.metrics.RecordLatency("signal_e2e_seconds", time.Since(sig.Time()).Seconds())

	start := time.Now()
	if err := h.store.Store(ctx, &sig); err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordLatency("signal_store_seconds", time.Since(start).Seconds())
	return nil
}

var _ pkgkafka.MessageHandler = (*SignalsPersistHandler)(nil)
