package models

// VolatilitySnapshot is the realized-volatility view published at each bar
// close. RealizedVol is annualized from one-minute log returns.
type VolatilitySnapshot struct {
	Timestamp   int64   `json:"timestamp"`
	Symbol      string  `json:"symbol"`
	RealizedVol float64 `json:"realized_vol"`
	WindowBars  int     `json:"window_bars"`
}
