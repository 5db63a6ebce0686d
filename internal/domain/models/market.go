package models

import "time"

// Candle represents one closed OHLCV bar. Timestamp is the bar open time in
// Unix milliseconds, matching the exchange kline payload.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Time converts the millisecond timestamp to time.Time (UTC).
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

func (c Candle) IsBullish() bool { return c.Close > c.Open }

// TypicalPrice is the HLC/3 price used for VWAP accumulation.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

func (c Candle) BodySize() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Trade is a single executed trade from the aggTrade stream.
// BuyerMaker true means the aggressor sold into the bid.
type Trade struct {
	Timestamp  int64   `json:"timestamp"`
	Price      float64 `json:"price"`
	Quantity   float64 `json:"quantity"`
	BuyerMaker bool    `json:"buyer_maker"`
}

func (t Trade) IsBuy() bool  { return !t.BuyerMaker }
func (t Trade) IsSell() bool { return t.BuyerMaker }

// BookLevel is one price level of the order book.
type BookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

func (l BookLevel) Notional() float64 { return l.Price * l.Quantity }

// BookSnapshot is a top-of-book view. Bids and Asks are ordered best-first.
type BookSnapshot struct {
	Timestamp int64       `json:"timestamp"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
}

func (b BookSnapshot) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

func (b BookSnapshot) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

func (b BookSnapshot) Spread() float64 { return b.BestAsk() - b.BestBid() }

func (b BookSnapshot) MidPrice() float64 { return (b.BestBid() + b.BestAsk()) / 2 }

// MarketEvent is one item bound for a symbol worker. Exactly one of Trade,
// Candle, Book or OI is set. Candle events carry only closed bars; OI events
// are injected by the poller so open-interest updates stay ordered with the
// rest of the symbol's stream.
type MarketEvent struct {
	Symbol string
	Trade  *Trade
	Candle *Candle
	Book   *BookSnapshot
	OI     *float64
}
