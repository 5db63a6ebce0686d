package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"FlowSight/internal/domain/models"
	drepo "FlowSight/internal/domain/repository"
	"FlowSight/pkg/config"
	xhttp "FlowSight/pkg/http"
	"FlowSight/pkg/logger"
)

// RESTClient implements HistoricalSource against the Binance futures REST
// API. It is used for warmup history and open-interest polling.
type RESTClient struct {
	baseURL string
	client  *xhttp.Client
	log     *logger.Logger
}

// NewREST creates a new Binance REST client.
func NewREST(cfg config.ExchangeConfig, client *xhttp.Client, log *logger.Logger) drepo.HistoricalSource {
	return &RESTClient{
		baseURL: cfg.RESTURL,
		client:  client,
		log:     log,
	}
}

// Klines fetches up to limit closed candles for a symbol. Binance returns an
// array of mixed-type arrays; numeric fields arrive as strings.
func (r *RESTClient) Klines(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	var raw [][]json.RawMessage
	opts := &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    r.baseURL + "/fapi/v1/klines",
		QueryParams: map[string][]string{
			"symbol":   {symbol},
			"interval": {string(tf)},
			"limit":    {strconv.Itoa(limit)},
		},
	}
	if err := r.client.SendAndParse(ctx, opts, &raw); err != nil {
		return nil, fmt.Errorf("klines %s: %w", symbol, err)
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, row := range raw {
		// [openTime, open, high, low, close, volume, closeTime, ...]
		if len(row) < 6 {
			continue
		}
		c, err := parseKlineRow(row)
		if err != nil {
			r.log.Warn("skipping malformed kline",
				logger.String("symbol", symbol), logger.Error(err))
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseKlineRow(row []json.RawMessage) (models.Candle, error) {
	var c models.Candle
	if err := json.Unmarshal(row[0], &c.Timestamp); err != nil {
		return c, fmt.Errorf("open time: %w", err)
	}
	fields := []struct {
		idx int
		dst *float64
	}{
		{1, &c.Open}, {2, &c.High}, {3, &c.Low}, {4, &c.Close}, {5, &c.Volume},
	}
	for _, f := range fields {
		var s string
		if err := json.Unmarshal(row[f.idx], &s); err != nil {
			return c, fmt.Errorf("field %d: %w", f.idx, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return c, fmt.Errorf("field %d: %w", f.idx, err)
		}
		*f.dst = v
	}
	return c, nil
}

type openInterestResponse struct {
	Symbol       string `json:"symbol"`
	OpenInterest string `json:"openInterest"`
	Time         int64  `json:"time"`
}

// OpenInterest fetches the current open interest for a symbol.
func (r *RESTClient) OpenInterest(ctx context.Context, symbol string) (float64, error) {
	var resp openInterestResponse
	opts := &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    r.baseURL + "/fapi/v1/openInterest",
		QueryParams: map[string][]string{
			"symbol": {symbol},
		},
	}
	if err := r.client.SendAndParse(ctx, opts, &resp); err != nil {
		return 0, fmt.Errorf("open interest %s: %w", symbol, err)
	}
	oi, err := strconv.ParseFloat(resp.OpenInterest, 64)
	if err != nil {
		return 0, fmt.Errorf("open interest %s: parse %q: %w", symbol, resp.OpenInterest, err)
	}
	return oi, nil
}
