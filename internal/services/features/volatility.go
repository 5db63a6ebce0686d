package features

import "math"

// BarsPerYear1m is the annualization factor for one-minute bars.
const BarsPerYear1m = 365 * 24 * 60

// LogReturns computes r_t = ln(C_t / C_{t-1}) over a close series.
// Returns a slice of length len(closes)-1, or nil if insufficient data.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility from the last
// window log returns. Returns 0 until enough returns have accumulated.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum, sum2 := 0.0, 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// VolTracker maintains a bounded close series for one symbol and reports
// realized volatility over a fixed window. Not safe for concurrent use; it
// lives inside a symbol worker.
type VolTracker struct {
	closes      []float64
	window      int
	barsPerYear float64
}

// NewVolTracker creates a tracker with the given return window.
func NewVolTracker(window int, barsPerYear float64) *VolTracker {
	if window < 2 {
		window = 2
	}
	return &VolTracker{
		// window returns need window+1 closes
		closes:      make([]float64, 0, window+1),
		window:      window,
		barsPerYear: barsPerYear,
	}
}

// Observe records one closed bar.
func (t *VolTracker) Observe(close float64) {
	t.closes = append(t.closes, close)
	if len(t.closes) > t.window+1 {
		t.closes = t.closes[1:]
	}
}

// Ready reports whether a full window of returns is available.
func (t *VolTracker) Ready() bool {
	return len(t.closes) >= t.window+1
}

// Value returns the current annualized realized volatility, or 0 when the
// window is not yet full.
func (t *VolTracker) Value() float64 {
	return RealizedVolatility(LogReturns(t.closes), t.window, t.barsPerYear)
}
