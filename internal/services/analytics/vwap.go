package analytics

import (
	"fmt"
	"math"

	"FlowSight/internal/domain/models"
	"FlowSight/pkg/config"
	"FlowSight/pkg/logger"
	"FlowSight/pkg/util"
)

// VWAPCalculator maintains the session volume-weighted average price with
// standard deviation bands, an OLS slope over a rolling lookback, and
// consecutive pullback/rejection counters.
type VWAPCalculator struct {
	symbol string
	cfg    config.VWAPConfig
	log    *logger.Logger

	sessionStart int64

	cumPV  float64 // Σ(price·volume)
	cumVol float64
	cumPV2 float64 // Σ(price²·volume), for the running variance

	history []float64 // last N VWAP values for the slope fit
	current *models.VWAPData

	pullbackBars  int
	rejectionBars int
}

func NewVWAPCalculator(symbol string, cfg config.VWAPConfig, log *logger.Logger) (*VWAPCalculator, error) {
	if _, err := util.SessionStart(0, cfg.SessionReset); err != nil {
		return nil, fmt.Errorf("vwap session_reset: %w", err)
	}
	return &VWAPCalculator{symbol: symbol, cfg: cfg, log: log}, nil
}

// Update ingests one closed candle and returns the refreshed VWAP snapshot.
func (v *VWAPCalculator) Update(candle models.Candle) *models.VWAPData {
	sess, _ := util.SessionStart(candle.Timestamp, v.cfg.SessionReset)
	if v.sessionStart == 0 || sess != v.sessionStart {
		v.resetSession(sess)
	}

	typical := candle.TypicalPrice()
	v.cumPV += typical * candle.Volume
	v.cumVol += candle.Volume
	v.cumPV2 += typical * typical * candle.Volume

	vwap := typical
	var variance float64
	if v.cumVol > 0 {
		vwap = v.cumPV / v.cumVol
		variance = v.cumPV2/v.cumVol - vwap*vwap
	}
	// Floating-point cancellation can push the variance slightly negative.
	if variance < 0 {
		variance = 0
	}
	sd := math.Sqrt(variance)

	mult1, mult2 := v.cfg.StdDevBands[0], v.cfg.StdDevBands[1]

	v.history = append(v.history, vwap)
	if len(v.history) > v.cfg.SlopeLookbackBars {
		v.history = v.history[1:]
	}

	v.current = &models.VWAPData{
		Timestamp:        candle.Timestamp,
		VWAP:             vwap,
		Upper1:           vwap + mult1*sd,
		Lower1:           vwap - mult1*sd,
		Upper2:           vwap + mult2*sd,
		Lower2:           vwap - mult2*sd,
		CumulativePV:     v.cumPV,
		CumulativeVolume: v.cumVol,
		Slope:            util.Slope(v.history),
	}

	v.trackPullback(candle.Close)

	return v.current
}

// Data returns the latest VWAP snapshot, nil before the first candle.
func (v *VWAPCalculator) Data() *models.VWAPData { return v.current }

func (v *VWAPCalculator) resetSession(sess int64) {
	v.sessionStart = sess
	v.cumPV = 0
	v.cumVol = 0
	v.cumPV2 = 0
	v.history = v.history[:0]
	v.pullbackBars = 0
	v.rejectionBars = 0

	v.log.Info("vwap session reset",
		logger.String("symbol", v.symbol),
		logger.String("start", util.FormatTimestamp(sess)))
}

func (v *VWAPCalculator) trackPullback(price float64) {
	switch {
	case v.IsPullback(price):
		v.pullbackBars++
		v.rejectionBars = 0
	case v.IsRejection(price):
		v.rejectionBars++
		v.pullbackBars = 0
	default:
		v.pullbackBars = 0
		v.rejectionBars = 0
	}
}

// IsPullback reports whether price is within the configured tolerance of the
// current VWAP.
func (v *VWAPCalculator) IsPullback(price float64) bool {
	if v.current == nil {
		return false
	}
	return v.current.InPullbackZone(price, v.cfg.Pullback.TolerancePercent)
}

// IsRejection reports whether price touched the previous bar's VWAP but has
// since moved outside tolerance of the current one.
func (v *VWAPCalculator) IsRejection(price float64) bool {
	if v.current == nil || len(v.history) < 2 {
		return false
	}
	prev := v.history[len(v.history)-2]
	if prev == 0 {
		return false
	}
	tol := v.cfg.Pullback.TolerancePercent
	wasNear := math.Abs(price-prev)/prev*100 <= tol
	movedAway := !v.current.InPullbackZone(price, tol)
	return wasNear && movedAway
}

func (v *VWAPCalculator) IsPullbackConfirmed() bool {
	return v.pullbackBars >= v.cfg.Pullback.ConfirmationBars
}

func (v *VWAPCalculator) IsRejectionConfirmed() bool {
	return v.rejectionBars >= v.cfg.Pullback.ConfirmationBars
}

func (v *VWAPCalculator) IsTrendingUp() bool {
	return v.current != nil && v.current.Slope > v.cfg.SlopeThreshold
}

func (v *VWAPCalculator) IsTrendingDown() bool {
	return v.current != nil && v.current.Slope < -v.cfg.SlopeThreshold
}

// BandLevel names the band price currently sits at, "NEUTRAL" when between
// bands, "UNKNOWN" before the first candle.
func (v *VWAPCalculator) BandLevel(price float64) string {
	if v.current == nil {
		return "UNKNOWN"
	}
	const tol = 0.1
	switch {
	case util.IsNear(price, v.current.VWAP, tol):
		return "VWAP"
	case util.IsNear(price, v.current.Upper1, tol):
		return "+1SD"
	case util.IsNear(price, v.current.Upper2, tol):
		return "+2SD"
	case util.IsNear(price, v.current.Lower1, tol):
		return "-1SD"
	case util.IsNear(price, v.current.Lower2, tol):
		return "-2SD"
	}
	return "NEUTRAL"
}
