package models

import "time"

// SignalType classifies an emitted trading signal.
type SignalType string

const (
	SignalLongEntry  SignalType = "LONG_ENTRY"
	SignalShortEntry SignalType = "SHORT_ENTRY"
	// SignalLongFailure is a short trap resolving long.
	SignalLongFailure SignalType = "LONG_FAILURE"
	// SignalShortFailure is a long trap resolving short.
	SignalShortFailure SignalType = "SHORT_FAILURE"
)

// SignalConditions is the evidence bundle behind a signal. Purely
// descriptive; fields mirror whatever the engine actually checked.
type SignalConditions struct {
	TPOEvent     StructureEvent `json:"tpo_event,omitempty"`
	TPOProximity float64        `json:"tpo_proximity"`

	VWAPAligned  bool    `json:"vwap_aligned"`
	VWAPDistance float64 `json:"vwap_distance"`
	VWAPSlope    float64 `json:"vwap_slope"`

	DeltaConfirmed bool `json:"delta_confirmed"`
	CVDConfirmed   bool `json:"cvd_confirmed"`
	OIConfirmed    bool `json:"oi_confirmed"`
	AggressiveFlow bool `json:"aggressive_flow"`
	Absorption     bool `json:"absorption"`

	DeltaFlip     bool `json:"delta_flip"`
	CVDDivergence bool `json:"cvd_divergence"`
}

// SignalEvent is one emitted decision. The TPO/VWAP/order-flow snapshots are
// borrowed read-only references, immutable once handed to the engine.
// Confidence is clamped to [0,1] on emission.
type SignalEvent struct {
	Timestamp int64      `json:"timestamp"`
	Symbol    string     `json:"symbol"`
	Type      SignalType `json:"signal_type"`
	Price     float64    `json:"price"`

	Conditions SignalConditions `json:"conditions"`
	Confidence float64          `json:"confidence"`

	TPO       *TPOProfile       `json:"tpo,omitempty"`
	VWAP      *VWAPData         `json:"vwap,omitempty"`
	OrderFlow *OrderFlowMetrics `json:"orderflow,omitempty"`
}

func (s *SignalEvent) Time() time.Time {
	return time.UnixMilli(s.Timestamp).UTC()
}

// AlertPriority ranks alert urgency for the dispatch layer.
type AlertPriority string

const (
	PriorityLow      AlertPriority = "LOW"
	PriorityMedium   AlertPriority = "MEDIUM"
	PriorityHigh     AlertPriority = "HIGH"
	PriorityCritical AlertPriority = "CRITICAL"
)

// Alert is a formatted notification derived from a signal.
type Alert struct {
	Timestamp int64         `json:"timestamp"`
	Priority  AlertPriority `json:"priority"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Signal    *SignalEvent  `json:"signal,omitempty"`
}
