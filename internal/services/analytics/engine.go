package analytics

import (
	"math"

	"FlowSight/internal/domain/models"
	"FlowSight/pkg/config"
	"FlowSight/pkg/logger"
	"FlowSight/pkg/util"
)

// SignalEngine fuses the TPO, VWAP and order-flow views into at most one
// confidence-scored signal per bar. Evaluation order is failure patterns,
// then long entry, then short entry; the first match wins. Each signal
// category carries its own cooldown timer.
type SignalEngine struct {
	symbol string
	cfg    config.SignalsConfig
	log    *logger.Logger

	lastLong    int64
	lastShort   int64
	lastFailure int64

	recentHigh float64
	recentLow  float64
	hasExtreme bool
}

func NewSignalEngine(symbol string, cfg config.SignalsConfig, log *logger.Logger) *SignalEngine {
	return &SignalEngine{symbol: symbol, cfg: cfg, log: log}
}

// Check evaluates all signal rules at one bar close. tpoEvent is empty when
// no structure event fired this bar. Returns nil when no rule matched.
func (e *SignalEngine) Check(
	now int64,
	price float64,
	profile *models.TPOProfile,
	tpoEvent models.StructureEvent,
	vwap *models.VWAPData,
	flow *models.OrderFlowMetrics,
) *models.SignalEvent {
	e.trackExtremes(price)

	if s := e.checkFailurePatterns(now, price, profile, vwap, flow); s != nil {
		return s
	}
	if s := e.checkLongEntry(now, price, profile, tpoEvent, vwap, flow); s != nil {
		return s
	}
	return e.checkShortEntry(now, price, profile, tpoEvent, vwap, flow)
}

// ResetExtremes clears the recent high/low tracking, called on session
// rollover.
func (e *SignalEngine) ResetExtremes() {
	e.recentHigh = 0
	e.recentLow = 0
	e.hasExtreme = false
}

func (e *SignalEngine) trackExtremes(price float64) {
	if !e.hasExtreme {
		e.recentHigh = price
		e.recentLow = price
		e.hasExtreme = true
		return
	}
	if price > e.recentHigh {
		e.recentHigh = price
	}
	if price < e.recentLow {
		e.recentLow = price
	}
}

func (e *SignalEngine) inCooldown(last, now int64) bool {
	if last == 0 {
		return false
	}
	return (now-last)/1000 < int64(e.cfg.CooldownSeconds)
}

func (e *SignalEngine) checkLongEntry(
	now int64,
	price float64,
	profile *models.TPOProfile,
	tpoEvent models.StructureEvent,
	vwap *models.VWAPData,
	flow *models.OrderFlowMetrics,
) *models.SignalEvent {
	if e.inCooldown(e.lastLong, now) {
		return nil
	}
	if profile == nil || vwap == nil || flow == nil {
		return nil
	}

	var conditions models.SignalConditions
	var confidence float64

	// TPO event is mandatory.
	switch tpoEvent {
	case models.StructureVALBounce, models.StructurePOCReclaim, models.StructureVAHBreakout:
		conditions.TPOEvent = tpoEvent
		conditions.TPOProximity = profile.DistanceToPOC(price)
		confidence += 0.25
	default:
		return nil
	}

	// VWAP alignment is mandatory: price at/above VWAP, pullback adds more.
	vwapValid := false
	if price >= vwap.VWAP {
		conditions.VWAPAligned = true
		vwapValid = true
		confidence += 0.15
	}
	if vwap.InPullbackZone(price, e.cfg.Long.VWAPPullbackTolerance) {
		conditions.VWAPAligned = true
		vwapValid = true
		confidence += 0.25
	}
	if vwap.Slope > 0 {
		conditions.VWAPSlope = vwap.Slope
		confidence += 0.10
	}
	if vwap.VWAP != 0 {
		conditions.VWAPDistance = math.Abs(price-vwap.VWAP) / vwap.VWAP * 100
	}
	if !vwapValid {
		return nil
	}

	met := 0
	var ofScore float64
	if flow.Delta > 0 {
		conditions.DeltaConfirmed = true
		met++
		ofScore += 0.10
	}
	if flow.Trend == models.FlowBullish {
		conditions.CVDConfirmed = true
		met++
		ofScore += 0.10
	}
	if flow.OIChangePercent > 0 {
		conditions.OIConfirmed = true
		met++
		ofScore += 0.05
	}
	if flow.ConsecutiveBuyBars >= 2 {
		conditions.AggressiveFlow = true
		met++
		ofScore += 0.10
	}

	required := 3
	if e.cfg.Long.RequireAllOrderflow {
		required = 4
	}
	if met < required {
		return nil
	}
	confidence += ofScore

	if confidence < e.cfg.Long.MinConfidence {
		return nil
	}

	e.lastLong = now
	return e.emit(now, price, models.SignalLongEntry, conditions, confidence, profile, vwap, flow)
}

func (e *SignalEngine) checkShortEntry(
	now int64,
	price float64,
	profile *models.TPOProfile,
	tpoEvent models.StructureEvent,
	vwap *models.VWAPData,
	flow *models.OrderFlowMetrics,
) *models.SignalEvent {
	if e.inCooldown(e.lastShort, now) {
		return nil
	}
	if profile == nil || vwap == nil || flow == nil {
		return nil
	}

	var conditions models.SignalConditions
	var confidence float64

	switch tpoEvent {
	case models.StructureVAHRejection, models.StructurePOCBreakdown, models.StructureVALBreak:
		conditions.TPOEvent = tpoEvent
		conditions.TPOProximity = profile.DistanceToPOC(price)
		confidence += 0.25
	default:
		return nil
	}

	vwapValid := false
	if price <= vwap.VWAP {
		conditions.VWAPAligned = true
		vwapValid = true
		confidence += 0.15
	}
	// Rejection at VWAP only counts when the flow behind it is bearish.
	if vwap.InPullbackZone(price, e.cfg.Short.VWAPRejectionTolerance) && flow.Delta < 0 {
		conditions.VWAPAligned = true
		vwapValid = true
		confidence += 0.25
	}
	if vwap.Slope < 0 {
		conditions.VWAPSlope = vwap.Slope
		confidence += 0.10
	}
	if vwap.VWAP != 0 {
		conditions.VWAPDistance = math.Abs(price-vwap.VWAP) / vwap.VWAP * 100
	}
	if !vwapValid {
		return nil
	}

	met := 0
	var ofScore float64
	if flow.Delta < 0 {
		conditions.DeltaConfirmed = true
		met++
		ofScore += 0.10
	}
	if flow.Trend == models.FlowBearish {
		conditions.CVDConfirmed = true
		met++
		ofScore += 0.10
	}
	if flow.OIChangePercent > 0 {
		conditions.OIConfirmed = true
		met++
		ofScore += 0.05
	}
	if flow.ConsecutiveSellBars >= 2 {
		conditions.AggressiveFlow = true
		met++
		ofScore += 0.10
	}

	required := 3
	if e.cfg.Short.RequireAllOrderflow {
		required = 4
	}
	if met < required {
		return nil
	}
	confidence += ofScore

	if confidence < e.cfg.Short.MinConfidence {
		return nil
	}

	e.lastShort = now
	return e.emit(now, price, models.SignalShortEntry, conditions, confidence, profile, vwap, flow)
}

func (e *SignalEngine) checkFailurePatterns(
	now int64,
	price float64,
	profile *models.TPOProfile,
	vwap *models.VWAPData,
	flow *models.OrderFlowMetrics,
) *models.SignalEvent {
	if e.inCooldown(e.lastFailure, now) {
		return nil
	}
	if profile == nil || vwap == nil || flow == nil {
		return nil
	}

	var conditions models.SignalConditions

	if confidence := e.upsideFailure(price, profile, vwap, flow, &conditions); confidence > 0 {
		e.lastFailure = now
		return e.emit(now, price, models.SignalShortFailure, conditions, confidence, profile, vwap, flow)
	}
	if confidence := e.downsideFailure(price, profile, vwap, flow, &conditions); confidence > 0 {
		e.lastFailure = now
		return e.emit(now, price, models.SignalLongFailure, conditions, confidence, profile, vwap, flow)
	}
	return nil
}

// upsideFailure scores a long trap: price pinned at the highs while the flow
// behind the breakout evaporates. Returns 0 when the pattern is absent.
func (e *SignalEngine) upsideFailure(
	price float64,
	profile *models.TPOProfile,
	vwap *models.VWAPData,
	flow *models.OrderFlowMetrics,
	conditions *models.SignalConditions,
) float64 {
	tol := e.cfg.Failure.KeyLevelTolerance
	if !util.IsNear(price, profile.VAH, tol) && !util.IsNear(price, vwap.Upper1, tol) {
		return 0
	}
	if !e.hasExtreme || price < e.recentHigh*0.998 {
		return 0
	}

	confidence := 0.2
	conditions.TPOEvent = models.StructureVAHRejection

	if flow.Delta < 0 {
		conditions.DeltaFlip = true
		confidence += 0.3
	}
	if flow.Trend != models.FlowBullish {
		conditions.CVDDivergence = true
		confidence += 0.2
	}
	if flow.AbsorptionDetected {
		conditions.Absorption = true
		confidence += 0.3
	}

	if confidence < e.cfg.Failure.MinConfidence {
		return 0
	}
	return confidence
}

func (e *SignalEngine) downsideFailure(
	price float64,
	profile *models.TPOProfile,
	vwap *models.VWAPData,
	flow *models.OrderFlowMetrics,
	conditions *models.SignalConditions,
) float64 {
	tol := e.cfg.Failure.KeyLevelTolerance
	if !util.IsNear(price, profile.VAL, tol) && !util.IsNear(price, vwap.Lower1, tol) {
		return 0
	}
	if !e.hasExtreme || price > e.recentLow*1.002 {
		return 0
	}

	confidence := 0.2
	conditions.TPOEvent = models.StructureVALBounce

	if flow.Delta > 0 {
		conditions.DeltaFlip = true
		confidence += 0.3
	}
	if flow.Trend != models.FlowBearish {
		conditions.CVDDivergence = true
		confidence += 0.2
	}
	if flow.AbsorptionDetected {
		conditions.Absorption = true
		confidence += 0.3
	}

	if confidence < e.cfg.Failure.MinConfidence {
		return 0
	}
	return confidence
}

func (e *SignalEngine) emit(
	now int64,
	price float64,
	kind models.SignalType,
	conditions models.SignalConditions,
	confidence float64,
	profile *models.TPOProfile,
	vwap *models.VWAPData,
	flow *models.OrderFlowMetrics,
) *models.SignalEvent {
	signal := &models.SignalEvent{
		Timestamp:  now,
		Symbol:     e.symbol,
		Type:       kind,
		Price:      price,
		Conditions: conditions,
		Confidence: math.Min(confidence, 1.0),
		TPO:        profile,
		VWAP:       vwap,
		OrderFlow:  flow,
	}

	e.log.Info("signal emitted",
		logger.String("symbol", e.symbol),
		logger.String("type", string(kind)),
		logger.Float64("price", price),
		logger.Float64("confidence", signal.Confidence))

	return signal
}
