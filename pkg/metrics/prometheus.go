package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	tradesTotal     *prometheus.CounterVec
	candlesTotal    *prometheus.CounterVec
	signalsTotal    *prometheus.CounterVec
	structureEvents *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowsight_trades_total",
				Help: "Total number of trades ingested",
			},
			[]string{"symbol"},
		),
		candlesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowsight_candles_total",
				Help: "Total number of closed candles processed",
			},
			[]string{"symbol"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowsight_signals_total",
				Help: "Total number of signals emitted",
			},
			[]string{"type", "symbol"},
		),
		structureEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowsight_structure_events_total",
				Help: "Total number of TPO structure events detected",
			},
			[]string{"event", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowsight_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flowsight_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowsight_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTrade records one ingested trade.
func (r *Recorder) RecordTrade(symbol string) {
	r.tradesTotal.WithLabelValues(symbol).Inc()
}

// RecordCandle records one processed closed candle.
func (r *Recorder) RecordCandle(symbol string) {
	r.candlesTotal.WithLabelValues(symbol).Inc()
}

// RecordSignal records one emitted signal.
func (r *Recorder) RecordSignal(kind, symbol string) {
	r.signalsTotal.WithLabelValues(kind, symbol).Inc()
}

// RecordStructureEvent records one detected TPO structure event.
func (r *Recorder) RecordStructureEvent(event, symbol string) {
	r.structureEvents.WithLabelValues(event, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
