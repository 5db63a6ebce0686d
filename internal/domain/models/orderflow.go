package models

// FlowDirection is the order-flow trend direction.
type FlowDirection string

const (
	FlowBullish FlowDirection = "BULLISH"
	FlowBearish FlowDirection = "BEARISH"
	FlowNeutral FlowDirection = "NEUTRAL"
)

// OrderFlowMetrics is one bar's order-flow snapshot, produced at bar close.
// Delta always equals BuyVolume - SellVolume; ImbalanceRatio is in [0,1].
type OrderFlowMetrics struct {
	Timestamp int64 `json:"timestamp"`

	Delta           float64       `json:"delta"`
	CumulativeDelta float64       `json:"cumulative_delta"`
	Trend           FlowDirection `json:"trend"`

	BuyVolume   float64 `json:"buy_volume"`
	SellVolume  float64 `json:"sell_volume"`
	TotalVolume float64 `json:"total_volume"`

	OpenInterest    float64 `json:"open_interest"`
	OIChange        float64 `json:"oi_change"`
	OIChangePercent float64 `json:"oi_change_percent"`

	ImbalanceRatio float64 `json:"imbalance_ratio"`

	AbsorptionDetected bool    `json:"absorption_detected"`
	AbsorptionPrice    float64 `json:"absorption_price"`
	AbsorptionVolume   float64 `json:"absorption_volume"`

	ConsecutiveBuyBars  int `json:"consecutive_buy_bars"`
	ConsecutiveSellBars int `json:"consecutive_sell_bars"`
}

// IsBullish reports full bullish confirmation: positive delta, bullish CVD
// trend and rising open interest.
func (m *OrderFlowMetrics) IsBullish() bool {
	return m.Delta > 0 && m.Trend == FlowBullish && m.OIChange > 0
}

func (m *OrderFlowMetrics) IsBearish() bool {
	return m.Delta < 0 && m.Trend == FlowBearish && m.OIChange > 0
}
