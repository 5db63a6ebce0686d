package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"FlowSight/internal/domain/models"
	drepo "FlowSight/internal/domain/repository"
	"FlowSight/pkg/config"
	"FlowSight/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client implements a MarketStream backed by the Binance futures combined
// stream. Each symbol subscribes to aggTrade, 1m klines and top-5 depth.
type Client struct {
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	buffer         int
	log            *logger.Logger

	conn      *websocket.Conn
	connected bool
	subID     int
}

// New creates a new Binance MarketStream.
func New(cfg config.ExchangeConfig, log *logger.Logger) drepo.MarketStream {
	return &Client{
		websocketURL:   cfg.WebSocketURL,
		symbols:        cfg.Symbols,
		reconnectDelay: cfg.ReconnectDelay,
		pingInterval:   cfg.PingInterval,
		buffer:         cfg.EventBuffer,
		log:            log,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	c.log.Info("binance stream connected", logger.String("url", c.websocketURL))
	return nil
}

func (c *Client) streamNames() []string {
	streams := make([]string, 0, len(c.symbols)*3)
	for _, s := range c.symbols {
		lower := strings.ToLower(s)
		streams = append(streams,
			lower+"@aggTrade",
			lower+"@kline_1m",
			lower+"@depth5@500ms",
		)
	}
	return streams
}

// Subscribe subscribes to configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("binance not connected")
	}
	c.subID++
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": c.streamNames(),
		"id":     c.subID,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	c.log.Info("binance streams subscribed",
		logger.Strings("symbols", c.symbols),
		logger.Int("streams", len(c.symbols)*3))
	return nil
}

type combinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type aggTradeFrame struct {
	Symbol     string `json:"s"`
	Price      string `json:"p"`
	Quantity   string `json:"q"`
	TradeTime  int64  `json:"T"`
	BuyerMaker bool   `json:"m"`
}

type klineFrame struct {
	Symbol string `json:"s"`
	Kline  struct {
		OpenTime int64  `json:"t"`
		Open     string `json:"o"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Close    string `json:"c"`
		Volume   string `json:"v"`
		Closed   bool   `json:"x"`
	} `json:"k"`
}

type depthFrame struct {
	Symbol    string      `json:"s"`
	EventTime int64       `json:"E"`
	Bids      [][2]string `json:"b"`
	Asks      [][2]string `json:"a"`
}

// Read streams market events and errors. Events are dropped, not blocked on,
// when the consumer falls behind.
func (c *Client) Read(ctx context.Context) (<-chan models.MarketEvent, <-chan error) {
	events := make(chan models.MarketEvent, c.buffer)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(events)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("binance conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance read: %w", err)
					return
				}

				event, ok := c.parseFrame(b)
				if !ok {
					continue
				}
				select {
				case events <- event:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return events, errs
}

func (c *Client) parseFrame(b []byte) (models.MarketEvent, bool) {
	var frame combinedFrame
	if err := json.Unmarshal(b, &frame); err != nil || frame.Stream == "" {
		// subscribe acks and other non-stream frames
		return models.MarketEvent{}, false
	}

	switch {
	case strings.Contains(frame.Stream, "@aggTrade"):
		return c.parseTrade(frame.Data)
	case strings.Contains(frame.Stream, "@kline"):
		return c.parseKline(frame.Data)
	case strings.Contains(frame.Stream, "@depth"):
		return c.parseDepth(frame.Data)
	}
	return models.MarketEvent{}, false
}

func (c *Client) parseTrade(data json.RawMessage) (models.MarketEvent, bool) {
	var t aggTradeFrame
	if err := json.Unmarshal(data, &t); err != nil {
		return models.MarketEvent{}, false
	}
	price, err1 := strconv.ParseFloat(t.Price, 64)
	qty, err2 := strconv.ParseFloat(t.Quantity, 64)
	if err1 != nil || err2 != nil || qty <= 0 {
		return models.MarketEvent{}, false
	}
	return models.MarketEvent{
		Symbol: t.Symbol,
		Trade: &models.Trade{
			Timestamp:  t.TradeTime,
			Price:      price,
			Quantity:   qty,
			BuyerMaker: t.BuyerMaker,
		},
	}, true
}

func (c *Client) parseKline(data json.RawMessage) (models.MarketEvent, bool) {
	var k klineFrame
	if err := json.Unmarshal(data, &k); err != nil {
		return models.MarketEvent{}, false
	}
	// only closed bars drive the analyzers
	if !k.Kline.Closed {
		return models.MarketEvent{}, false
	}

	open, err1 := strconv.ParseFloat(k.Kline.Open, 64)
	high, err2 := strconv.ParseFloat(k.Kline.High, 64)
	low, err3 := strconv.ParseFloat(k.Kline.Low, 64)
	cls, err4 := strconv.ParseFloat(k.Kline.Close, 64)
	vol, err5 := strconv.ParseFloat(k.Kline.Volume, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return models.MarketEvent{}, false
	}

	return models.MarketEvent{
		Symbol: k.Symbol,
		Candle: &models.Candle{
			Timestamp: k.Kline.OpenTime,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     cls,
			Volume:    vol,
		},
	}, true
}

func (c *Client) parseDepth(data json.RawMessage) (models.MarketEvent, bool) {
	var d depthFrame
	if err := json.Unmarshal(data, &d); err != nil {
		return models.MarketEvent{}, false
	}
	if len(d.Bids) == 0 && len(d.Asks) == 0 {
		return models.MarketEvent{}, false
	}

	book := &models.BookSnapshot{Timestamp: d.EventTime}
	book.Bids = parseLevels(d.Bids)
	book.Asks = parseLevels(d.Asks)
	return models.MarketEvent{Symbol: d.Symbol, Book: book}, true
}

func parseLevels(raw [][2]string) []models.BookLevel {
	levels := make([]models.BookLevel, 0, len(raw))
	for _, l := range raw {
		price, err1 := strconv.ParseFloat(l[0], 64)
		qty, err2 := strconv.ParseFloat(l[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, models.BookLevel{Price: price, Quantity: qty})
	}
	return levels
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
