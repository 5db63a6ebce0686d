package api

import (
	"time"

	models "FlowSight/internal/domain/models"
	domrepo "FlowSight/internal/domain/repository"
	icache "FlowSight/internal/service/cache"
	"FlowSight/internal/usecase"
	xhttp "FlowSight/pkg/http"
	xlogger "FlowSight/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Handler exposes the analysis surface over HTTP: latest analyzer snapshots,
// stored signals and a status probe.
type Handler struct {
	logger    *xlogger.Logger
	collector *usecase.MarketCollector
	store     domrepo.SignalStore
	snaps     domrepo.SnapshotCache
}

func NewHandler(
	logger *xlogger.Logger,
	collector *usecase.MarketCollector,
	store domrepo.SignalStore,
	snaps domrepo.SnapshotCache,
) *Handler {
	return &Handler{logger: logger, collector: collector, store: store, snaps: snaps}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/signals/:symbol", h.Signals)
	g.GET("/profile/:symbol", h.Profile)
	g.GET("/vwap/:symbol", h.VWAP)
	g.GET("/orderflow/:symbol", h.OrderFlow)
	g.GET("/volatility/:symbol", h.Volatility)
}

func (h *Handler) Status(c echo.Context) error {
	ctx := c.Request().Context()

	storeHealthy := true
	if err := h.store.Health(ctx); err != nil {
		storeHealthy = false
	}

	return xhttp.SuccessResponse(c, map[string]interface{}{
		"stream_connected": h.collector.IsConnected(),
		"store_healthy":    storeHealthy,
		"time":             time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())
	from := xhttp.ParseTimeDefault(req.From, to.Add(-24*time.Hour))

	signals, err := h.store.Query(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("signals query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, signals, int64(len(signals)))
}

func (h *Handler) Profile(c echo.Context) error {
	var profile models.TPOProfile
	return h.snapshot(c, icache.KindProfile, &profile)
}

func (h *Handler) VWAP(c echo.Context) error {
	var vwap models.VWAPData
	return h.snapshot(c, icache.KindVWAP, &vwap)
}

func (h *Handler) OrderFlow(c echo.Context) error {
	var flow models.OrderFlowMetrics
	return h.snapshot(c, icache.KindOrderFlow, &flow)
}

func (h *Handler) Volatility(c echo.Context) error {
	var vol models.VolatilitySnapshot
	return h.snapshot(c, icache.KindVolatility, &vol)
}

func (h *Handler) snapshot(c echo.Context, kind string, dst interface{}) error {
	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ok, err := h.snaps.GetSnapshot(c.Request().Context(), req.Symbol, kind, dst)
	if err != nil {
		h.logger.Error("snapshot fetch error",
			xlogger.String("kind", kind),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if !ok {
		return xhttp.NotFoundResponse(c, xhttp.NotFoundErrorf("no %s snapshot for %s", kind, req.Symbol))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, dst)
}
