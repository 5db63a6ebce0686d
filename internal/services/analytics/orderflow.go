package analytics

import (
	"math"

	"FlowSight/internal/domain/models"
	"FlowSight/pkg/config"
	"FlowSight/pkg/logger"
	"FlowSight/pkg/util"
)

const deltaHistoryCap = 100

// OrderFlowAnalyzer tracks aggressive buy/sell volume, cumulative delta,
// book imbalance, open interest and absorption patterns. Trades and book
// updates feed running accumulators; FinalizeBar seals a bar at candle close.
type OrderFlowAnalyzer struct {
	symbol string
	cfg    config.OrderFlowConfig
	log    *logger.Logger

	// open-bar accumulators, reset at FinalizeBar
	curDelta float64
	buyVol   float64
	sellVol  float64

	cumDelta  float64
	deltaHist []float64
	cvdHist   []float64
	volHist   []float64 // absorption lookback
	priceHist []float64

	curOI  float64
	prevOI float64

	imbalance float64

	consecBuy  int
	consecSell int
	trend      models.FlowDirection

	absorption       bool
	absorptionPrice  float64
	absorptionVolume float64
}

func NewOrderFlowAnalyzer(symbol string, cfg config.OrderFlowConfig, log *logger.Logger) *OrderFlowAnalyzer {
	return &OrderFlowAnalyzer{
		symbol: symbol,
		cfg:    cfg,
		log:    log,
		trend:  models.FlowNeutral,
	}
}

// AddTrade folds one trade into the open bar's accumulators.
func (o *OrderFlowAnalyzer) AddTrade(trade models.Trade) {
	if trade.IsBuy() {
		o.buyVol += trade.Quantity
	} else {
		o.sellVol += trade.Quantity
	}
	o.curDelta = o.buyVol - o.sellVol
}

// UpdateFromTrades replaces the open bar's accumulators with the sums over
// the given trades. Use AddTrade for incremental feeds.
func (o *OrderFlowAnalyzer) UpdateFromTrades(trades []models.Trade) {
	var buy, sell float64
	for _, t := range trades {
		if t.IsBuy() {
			buy += t.Quantity
		} else {
			sell += t.Quantity
		}
	}
	o.buyVol = buy
	o.sellVol = sell
	o.curDelta = buy - sell
}

// UpdateFromOrderBook recomputes the top-5 bid/ask imbalance ratio.
func (o *OrderFlowAnalyzer) UpdateFromOrderBook(book models.BookSnapshot) {
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return
	}

	var bidVol, askVol float64
	for i, l := range book.Bids {
		if i == 5 {
			break
		}
		bidVol += l.Quantity
	}
	for i, l := range book.Asks {
		if i == 5 {
			break
		}
		askVol += l.Quantity
	}

	total := bidVol + askVol
	if total > 0 {
		o.imbalance = math.Abs(askVol-bidVol) / total
	} else {
		o.imbalance = 0
	}
}

// UpdateOI stores a freshly polled open-interest value.
func (o *OrderFlowAnalyzer) UpdateOI(oi float64) {
	o.prevOI = o.curOI
	o.curOI = oi
}

// FinalizeBar seals the open bar at candle close: appends delta/CVD history,
// refreshes trend, consecutive-bar and absorption state, then clears the
// open-bar accumulators.
func (o *OrderFlowAnalyzer) FinalizeBar(price float64) {
	o.cumDelta += o.curDelta

	o.deltaHist = pushCapped(o.deltaHist, o.curDelta, deltaHistoryCap)
	o.cvdHist = pushCapped(o.cvdHist, o.cumDelta, deltaHistoryCap)
	o.volHist = pushCapped(o.volHist, o.buyVol+o.sellVol, o.cfg.Absorption.LookbackBars)
	o.priceHist = pushCapped(o.priceHist, price, o.cfg.Absorption.LookbackBars)

	o.updateTrend()
	o.updateConsecutiveBars()
	o.checkAbsorption(price)

	o.curDelta = 0
	o.buyVol = 0
	o.sellVol = 0
}

func (o *OrderFlowAnalyzer) updateTrend() {
	if len(o.cvdHist) < o.cfg.CVD.TrendLookback {
		o.trend = models.FlowNeutral
		return
	}

	recent := o.cvdHist[len(o.cvdHist)-o.cfg.CVD.TrendLookback:]
	slope := util.Slope(recent)
	switch {
	case slope > 0:
		o.trend = models.FlowBullish
	case slope < 0:
		o.trend = models.FlowBearish
	default:
		o.trend = models.FlowNeutral
	}
}

func (o *OrderFlowAnalyzer) updateConsecutiveBars() {
	switch {
	case o.IsDeltaBullish():
		o.consecBuy++
		o.consecSell = 0
	case o.IsDeltaBearish():
		o.consecSell++
		o.consecBuy = 0
	default:
		o.consecBuy = 0
		o.consecSell = 0
	}
}

// checkAbsorption flags bars with unusually high volume but no commensurate
// price movement. Requires a full lookback window.
func (o *OrderFlowAnalyzer) checkAbsorption(price float64) {
	if len(o.volHist) < o.cfg.Absorption.LookbackBars || len(o.priceHist) < 2 {
		o.absorption = false
		return
	}

	avg := util.Mean(o.volHist)
	recent := o.volHist[len(o.volHist)-1]
	if recent < avg*o.cfg.Absorption.VolumeMultiplier {
		o.absorption = false
		return
	}

	prevPrice := o.priceHist[len(o.priceHist)-2]
	if prevPrice == 0 {
		o.absorption = false
		return
	}
	moved := math.Abs(util.PercentChange(prevPrice, price))
	if moved <= o.cfg.Absorption.PriceMoveTolerance {
		o.absorption = true
		o.absorptionPrice = price
		o.absorptionVolume = recent
		o.log.Info("absorption detected",
			logger.String("symbol", o.symbol),
			logger.Float64("price", price),
			logger.Float64("volume", recent))
	} else {
		o.absorption = false
	}
}

func (o *OrderFlowAnalyzer) IsDeltaBullish() bool {
	return len(o.deltaHist) > 0 && o.deltaHist[len(o.deltaHist)-1] > o.cfg.Delta.SignificantThreshold
}

func (o *OrderFlowAnalyzer) IsDeltaBearish() bool {
	return len(o.deltaHist) > 0 && o.deltaHist[len(o.deltaHist)-1] < -o.cfg.Delta.SignificantThreshold
}

func (o *OrderFlowAnalyzer) IsCVDRising() bool  { return o.trend == models.FlowBullish }
func (o *OrderFlowAnalyzer) IsCVDFalling() bool { return o.trend == models.FlowBearish }

func (o *OrderFlowAnalyzer) IsOIIncreasing() bool {
	if o.prevOI == 0 {
		return false
	}
	return util.PercentChange(o.prevOI, o.curOI) >= o.cfg.OI.SignificantChangePercent
}

func (o *OrderFlowAnalyzer) IsOIDecreasing() bool {
	if o.prevOI == 0 {
		return false
	}
	return util.PercentChange(o.prevOI, o.curOI) <= -o.cfg.OI.SignificantChangePercent
}

func (o *OrderFlowAnalyzer) HasImbalance() bool {
	return o.imbalance > o.cfg.Imbalance.RatioThreshold
}

func (o *OrderFlowAnalyzer) HasConsecutiveBuying() bool {
	return o.consecBuy >= o.cfg.Delta.ConsecutiveBars
}

func (o *OrderFlowAnalyzer) HasConsecutiveSelling() bool {
	return o.consecSell >= o.cfg.Delta.ConsecutiveBars
}

func (o *OrderFlowAnalyzer) HasAbsorption() bool { return o.absorption }

// CheckDeltaFlip reports a strict sign flip between the two most recent
// finalized bar deltas.
func (o *OrderFlowAnalyzer) CheckDeltaFlip() bool {
	if len(o.deltaHist) < 2 {
		return false
	}
	prev := o.deltaHist[len(o.deltaHist)-2]
	cur := o.deltaHist[len(o.deltaHist)-1]
	return (prev > 0 && cur < 0) || (prev < 0 && cur > 0)
}

// CheckCVDDivergence reports whether the CVD trend disagrees with the given
// price direction.
func (o *OrderFlowAnalyzer) CheckCVDDivergence(priceRising bool) bool {
	if len(o.cvdHist) < o.cfg.CVD.TrendLookback {
		return false
	}
	if !priceRising && o.IsCVDRising() {
		return true
	}
	if priceRising && o.IsCVDFalling() {
		return true
	}
	return false
}

// Metrics snapshots the current order-flow state. Delta reflects the last
// finalized bar, not the open accumulators.
func (o *OrderFlowAnalyzer) Metrics(timestamp int64) *models.OrderFlowMetrics {
	var oiChangePct float64
	if o.prevOI > 0 {
		oiChangePct = util.PercentChange(o.prevOI, o.curOI)
	}

	var delta float64
	if len(o.deltaHist) > 0 {
		delta = o.deltaHist[len(o.deltaHist)-1]
	}

	return &models.OrderFlowMetrics{
		Timestamp:           timestamp,
		Delta:               delta,
		CumulativeDelta:     o.cumDelta,
		Trend:               o.trend,
		BuyVolume:           o.buyVol,
		SellVolume:          o.sellVol,
		TotalVolume:         o.buyVol + o.sellVol,
		OpenInterest:        o.curOI,
		OIChange:            o.curOI - o.prevOI,
		OIChangePercent:     oiChangePct,
		ImbalanceRatio:      o.imbalance,
		AbsorptionDetected:  o.absorption,
		AbsorptionPrice:     o.absorptionPrice,
		AbsorptionVolume:    o.absorptionVolume,
		ConsecutiveBuyBars:  o.consecBuy,
		ConsecutiveSellBars: o.consecSell,
	}
}

// Reset clears cumulative state. Deliberately independent of the TPO/VWAP
// session boundaries; the caller decides when a new order-flow session begins.
func (o *OrderFlowAnalyzer) Reset() {
	o.cumDelta = 0
	o.deltaHist = o.deltaHist[:0]
	o.cvdHist = o.cvdHist[:0]
	o.volHist = o.volHist[:0]
	o.priceHist = o.priceHist[:0]
	o.consecBuy = 0
	o.consecSell = 0
	o.trend = models.FlowNeutral
	o.absorption = false
}

func pushCapped(s []float64, v float64, max int) []float64 {
	s = append(s, v)
	if len(s) > max {
		s = s[1:]
	}
	return s
}
