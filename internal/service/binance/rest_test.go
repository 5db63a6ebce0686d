package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	drepo "FlowSight/internal/domain/repository"
	"FlowSight/pkg/config"
	xhttp "FlowSight/pkg/http"
	"FlowSight/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestREST(t *testing.T, h http.HandlerFunc) drepo.HistoricalSource {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	return NewREST(config.ExchangeConfig{RESTURL: srv.URL}, xhttp.NewClient(), log)
}

func TestKlinesParsesAndSkipsMalformedRows(t *testing.T) {
	rest := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		// second row is short, third has an unparseable price
		_, _ = w.Write([]byte(`[
			[1700000000000,"100.5","101.0","99.5","100.9","12.5",1700000059999],
			[1700000060000,"100.9"],
			[1700000120000,"abc","101.0","99.5","100.9","12.5",1700000179999],
			[1700000180000,"100.9","101.2","100.1","101.1","8.0",1700000239999]
		]`))
	})

	candles, err := rest.Klines(context.Background(), "BTCUSDT", drepo.TF1m, 3)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, int64(1700000000000), candles[0].Timestamp)
	assert.Equal(t, 100.5, candles[0].Open)
	assert.Equal(t, 101.0, candles[0].High)
	assert.Equal(t, 99.5, candles[0].Low)
	assert.Equal(t, 100.9, candles[0].Close)
	assert.Equal(t, 12.5, candles[0].Volume)
	assert.Equal(t, 101.1, candles[1].Close)
}

func TestKlinesErrorStatus(t *testing.T) {
	rest := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	})

	_, err := rest.Klines(context.Background(), "NOPEUSDT", drepo.TF1m, 10)
	assert.Error(t, err)
}

func TestOpenInterest(t *testing.T) {
	rest := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/openInterest", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","openInterest":"12345.678","time":1700000000000}`))
	})

	oi, err := rest.OpenInterest(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 12345.678, oi)
}

func TestOpenInterestUnparseableValue(t *testing.T) {
	rest := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","openInterest":"","time":1}`))
	})

	_, err := rest.OpenInterest(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}
