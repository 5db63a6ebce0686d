package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"FlowSight/internal/domain/models"
	"FlowSight/pkg/config"
	"FlowSight/pkg/logger"
	"FlowSight/pkg/util"
)

// TPOAnalyzer builds a per-session market profile from closed candles and
// detects interactions with its key levels (POC, VAH, VAL).
//
// Two nested cycles drive the state: the session resets when the wall clock
// crosses the configured daily start time, and the TPO letter advances every
// configured number of minutes inside a session.
type TPOAnalyzer struct {
	symbol string
	cfg    config.TPOConfig
	log    *logger.Logger

	sessionStart int64

	// tick-quantized price ladder, ascending
	prices  []float64
	volume  map[float64]float64
	letters map[float64]string

	letterIdx     int
	lastSliceTime int64

	lastPrice float64
	hasLast   bool

	current  *models.TPOProfile
	previous *models.TPOProfile
}

func NewTPOAnalyzer(symbol string, cfg config.TPOConfig, log *logger.Logger) (*TPOAnalyzer, error) {
	if _, err := util.SessionStart(0, cfg.SessionStart); err != nil {
		return nil, fmt.Errorf("tpo session_start: %w", err)
	}
	return &TPOAnalyzer{
		symbol:  symbol,
		cfg:     cfg,
		log:     log,
		volume:  make(map[float64]float64),
		letters: make(map[float64]string),
	}, nil
}

// Update ingests one closed candle, rebuilds the profile and reports a
// structure event when the close crossed a key level since the previous call.
func (t *TPOAnalyzer) Update(candle models.Candle) (models.StructureEvent, bool) {
	sess, _ := util.SessionStart(candle.Timestamp, t.cfg.SessionStart)
	if t.sessionStart == 0 || sess != t.sessionStart {
		t.startSession(sess)
	}

	if t.lastSliceTime == 0 {
		t.lastSliceTime = candle.Timestamp
	} else if candle.Timestamp-t.lastSliceTime >= int64(t.cfg.TimeSliceMinutes)*60_000 {
		t.letterIdx++
		t.lastSliceTime = candle.Timestamp
	}

	t.addPriceVolume(candle)
	t.rebuildProfile()

	event, ok := t.detectStructureEvent(candle.Close)
	t.lastPrice = candle.Close
	t.hasLast = true
	return event, ok
}

// Profile returns the current session's profile, nil before the first candle.
func (t *TPOAnalyzer) Profile() *models.TPOProfile { return t.current }

// PreviousProfile returns the profile of the last completed session.
func (t *TPOAnalyzer) PreviousProfile() *models.TPOProfile { return t.previous }

// SessionStart returns the active session boundary in unix milliseconds,
// 0 before the first candle.
func (t *TPOAnalyzer) SessionStart() int64 { return t.sessionStart }

func (t *TPOAnalyzer) startSession(sess int64) {
	if t.current != nil {
		t.previous = t.current
		t.log.Info("tpo session ended",
			logger.String("symbol", t.symbol),
			logger.Float64("vah", t.current.VAH),
			logger.Float64("poc", t.current.POC),
			logger.Float64("val", t.current.VAL))
	}

	t.sessionStart = sess
	t.current = nil
	t.prices = t.prices[:0]
	t.volume = make(map[float64]float64)
	t.letters = make(map[float64]string)
	t.letterIdx = 0
	t.lastSliceTime = 0

	t.log.Info("tpo session started",
		logger.String("symbol", t.symbol),
		logger.String("start", util.FormatTimestamp(sess)))
}

func (t *TPOAnalyzer) addPriceVolume(candle models.Candle) {
	letter := string(rune('A' + t.letterIdx%26))
	tick := t.cfg.TickSize

	if candle.High == candle.Low {
		t.addLevel(util.RoundToTick(candle.Close, tick), candle.Volume, letter)
		return
	}

	// Equal distribution across the tick-quantized high-low range.
	n := int(math.Floor((candle.High-candle.Low)/tick+1e-9)) + 1
	perTick := candle.Volume / float64(n)
	for i := 0; i < n; i++ {
		price := util.RoundToTick(candle.Low+float64(i)*tick, tick)
		t.addLevel(price, perTick, letter)
	}
}

func (t *TPOAnalyzer) addLevel(price, vol float64, letter string) {
	if _, ok := t.volume[price]; !ok {
		i := sort.SearchFloat64s(t.prices, price)
		t.prices = append(t.prices, 0)
		copy(t.prices[i+1:], t.prices[i:])
		t.prices[i] = price
	}
	t.volume[price] += vol
	if !strings.Contains(t.letters[price], letter) {
		t.letters[price] += letter
	}
}

func (t *TPOAnalyzer) rebuildProfile() {
	if len(t.prices) == 0 {
		return
	}

	// POC: maximum volume, scanned ascending so ties resolve to the lowest price.
	pocIdx := 0
	var total float64
	for i, p := range t.prices {
		v := t.volume[p]
		total += v
		if v > t.volume[t.prices[pocIdx]] {
			pocIdx = i
		}
	}
	poc := t.prices[pocIdx]

	// Expand the value area from the POC one tick at a time toward the side
	// holding more volume, upper side on ties.
	target := total * (t.cfg.ValueAreaPercent / 100)
	areaVol := t.volume[poc]
	upper, lower := pocIdx, pocIdx
	for areaVol < target {
		var above, below float64
		if upper+1 < len(t.prices) {
			above = t.volume[t.prices[upper+1]]
		}
		if lower-1 >= 0 {
			below = t.volume[t.prices[lower-1]]
		}
		if above >= below && upper+1 < len(t.prices) {
			upper++
			areaVol += above
		} else if lower-1 >= 0 {
			lower--
			areaVol += below
		} else {
			break
		}
	}

	levels := make([]models.PriceLevel, len(t.prices))
	for i, p := range t.prices {
		levels[i] = models.PriceLevel{Price: p, Volume: t.volume[p], Letters: t.letters[p]}
	}

	t.current = &models.TPOProfile{
		SessionStart:    t.sessionStart,
		SessionEnd:      t.sessionStart + int64(t.cfg.SessionDuration)*3_600_000,
		POC:             poc,
		VAH:             t.prices[upper],
		VAL:             t.prices[lower],
		Levels:          levels,
		TotalVolume:     total,
		ValueAreaVolume: areaVol,
	}
}

func (t *TPOAnalyzer) detectStructureEvent(price float64) (models.StructureEvent, bool) {
	if t.current == nil || !t.hasLast {
		return "", false
	}

	p := t.current
	last := t.lastPrice
	proximity := float64(t.cfg.Structure.ProximityTicks) * t.cfg.TickSize
	near := func(level float64) bool { return math.Abs(price-level) <= proximity }

	if near(p.VAH) {
		if last < p.VAH && price >= p.VAH {
			t.logEvent(models.StructureVAHBreakout, price)
			return models.StructureVAHBreakout, true
		}
		if last > p.VAH && price <= p.VAH {
			t.logEvent(models.StructureVAHRejection, price)
			return models.StructureVAHRejection, true
		}
	}

	if near(p.VAL) {
		if last > p.VAL && price <= p.VAL {
			t.logEvent(models.StructureVALBreak, price)
			return models.StructureVALBreak, true
		}
		if last < p.VAL && price >= p.VAL {
			t.logEvent(models.StructureVALBounce, price)
			return models.StructureVALBounce, true
		}
	}

	if near(p.POC) {
		if last < p.POC && price >= p.POC {
			t.logEvent(models.StructurePOCReclaim, price)
			return models.StructurePOCReclaim, true
		}
		if last > p.POC && price <= p.POC {
			t.logEvent(models.StructurePOCBreakdown, price)
			return models.StructurePOCBreakdown, true
		}
	}

	wasInside := p.IsInsideValueArea(last)
	isInside := p.IsInsideValueArea(price)
	if !wasInside && isInside {
		return models.StructureInsideValue, true
	}
	if wasInside && !isInside {
		return models.StructureOutsideValue, true
	}

	return "", false
}

func (t *TPOAnalyzer) logEvent(event models.StructureEvent, price float64) {
	t.log.Info("tpo structure event",
		logger.String("symbol", t.symbol),
		logger.String("event", string(event)),
		logger.Float64("price", price))
}

// IsNearKeyLevel reports whether price sits within the proximity tolerance of
// VAH, VAL or POC and names the level.
func (t *TPOAnalyzer) IsNearKeyLevel(price float64) (bool, string) {
	if t.current == nil {
		return false, ""
	}
	proximity := float64(t.cfg.Structure.ProximityTicks) * t.cfg.TickSize
	switch {
	case math.Abs(price-t.current.VAH) <= proximity:
		return true, "VAH"
	case math.Abs(price-t.current.VAL) <= proximity:
		return true, "VAL"
	case math.Abs(price-t.current.POC) <= proximity:
		return true, "POC"
	}
	return false, ""
}
