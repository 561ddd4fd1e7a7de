package api

import (
	"time"

	"fxpull/internal/domain/models"
	domrepo "fxpull/internal/domain/repository"
	"fxpull/internal/service/cache"
	"fxpull/internal/usecase"
	xhttp "fxpull/pkg/http"
	xlogger "fxpull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StatusHandler serves the ingestion status and read-back surface.
type StatusHandler struct {
	logger *xlogger.Logger
	ing    *usecase.Ingestor
	store  domrepo.TimeSeriesStore
	source domrepo.MarketDataSource
	quotes *cache.QuoteCache
	broker string
}

func NewStatusHandler(
	logger *xlogger.Logger,
	ing *usecase.Ingestor,
	store domrepo.TimeSeriesStore,
	source domrepo.MarketDataSource,
	quotes *cache.QuoteCache,
	broker string,
) *StatusHandler {
	return &StatusHandler{
		logger: logger,
		ing:    ing,
		store:  store,
		source: source,
		quotes: quotes,
		broker: broker,
	}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/bars", h.Bars)
	g.GET("/quote/:instrument", h.Quote)
}

type healthResponse struct {
	Store   string `json:"store"`
	Source  string `json:"source"`
	Cache   string `json:"cache,omitempty"`
	Healthy bool   `json:"healthy"`
}

// Health reports connectivity of the store, the provider session, and
// the quote cache when one is configured.
func (h *StatusHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	res := healthResponse{Store: "ok", Source: "ok", Healthy: true}

	if err := h.store.Health(ctx); err != nil {
		res.Store = err.Error()
		res.Healthy = false
	}
	if !h.source.IsConnected() {
		res.Source = "disconnected"
		res.Healthy = false
	}
	if h.quotes != nil {
		res.Cache = "ok"
		if err := h.quotes.Health(ctx); err != nil {
			res.Cache = err.Error()
			res.Healthy = false
		}
	}

	if !res.Healthy {
		return xhttp.ServiceUnavailableResponse(c, res)
	}
	return xhttp.SuccessResponse(c, res)
}

type statusResponse struct {
	Broker     string               `json:"broker"`
	Connected  bool                 `json:"connected"`
	DayAnchors map[string]time.Time `json:"day_anchors"`
	Units      []usecase.UnitStatus `json:"units"`
}

// Status returns per-unit sync state and resolved trading-day anchors.
func (h *StatusHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, statusResponse{
		Broker:     h.broker,
		Connected:  h.source.IsConnected(),
		DayAnchors: h.ing.DayAnchors(),
		Units:      h.ing.Statuses(),
	})
}

// BarsRequest filters a stored series read-back.
type BarsRequest struct {
	Instrument string `query:"instrument" validate:"required"`
	TF         string `query:"tf" default:"m1"`
	From       string `query:"from"`
	To         string `query:"to"`
	Limit      int    `query:"limit" default:"500" validate:"gte=1,lte=10000"`
}

// Bars reads stored bars back out of the time-series store.
func (h *StatusHandler) Bars(c echo.Context) error {
	req := &BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tf := models.Timeframe(req.TF)
	if !models.IsValidTimeframe(tf) {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_ONEOF",
			Field:   "tf",
			Message: "tf must be a supported timeframe",
		}})
	}

	from, ok := parseTimeParam(req.From)
	if !ok {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code: "ERR_TIME", Field: "from", Message: "from must be RFC3339",
		}})
	}
	to, ok := parseTimeParam(req.To)
	if !ok {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code: "ERR_TIME", Field: "to", Message: "to must be RFC3339",
		}})
	}

	loc := models.Locate(h.broker, req.Instrument, tf)
	bars, err := h.store.Query(c.Request().Context(), loc, from, to, req.Limit)
	if err != nil {
		h.logger.Error("bars query failed",
			xlogger.String("location", loc.String()),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.ListResponse(c, bars, int64(len(bars)))
}

// Quote serves the last cached quote for an instrument.
func (h *StatusHandler) Quote(c echo.Context) error {
	if h.quotes == nil {
		return xhttp.NotFoundResponse(c, "quote cache is not configured")
	}

	instrument := c.Param("instrument")
	q, found, err := h.quotes.Get(c.Request().Context(), instrument)
	if err != nil {
		h.logger.Error("quote lookup failed",
			xlogger.String("instrument", instrument),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	if !found {
		return xhttp.NotFoundResponse(c, "no quote for "+instrument)
	}
	return xhttp.SuccessResponse(c, q)
}

func parseTimeParam(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
