package api

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"FutPull/internal/domain/models"
	"FutPull/internal/service/metrics"
	"FutPull/internal/service/ratelimit"
	"FutPull/internal/services/session"
	"FutPull/internal/usecase"
	"FutPull/pkg/cache"
	xhttp "FutPull/pkg/http"
	xlogger "FutPull/pkg/logger"
	"FutPull/pkg/util"
)

// BarsResponse is the payload of GET /api/v1/bars. Rows follow Fields.
type BarsResponse struct {
	Contract  string                 `json:"contract"`
	TradeDate string                 `json:"trade_date"`
	Fields    []string               `json:"fields"`
	Rows      [][]any                `json:"rows"`
	Total     int                    `json:"total"`
	Stats     models.ConversionStats `json:"stats"`
}

type SessionResponse struct {
	Instrument string       `json:"instrument"`
	TradeDate  string       `json:"trade_date"`
	Kind       string       `json:"kind"`
	Zones      []ZoneView   `json:"forbidden_zones"`
	Windows    []WindowView `json:"windows"`
}

type ZoneView struct {
	Begin time.Time `json:"begin"`
	End   time.Time `json:"end"`
	Snap  string    `json:"snap"`
}

type WindowView struct {
	Begin time.Time `json:"begin"`
	End   time.Time `json:"end"`
}

// BarsEchoHandler serves minute bars converted on demand.
type BarsEchoHandler struct {
	logger   *xlogger.Logger
	query    *usecase.BarQuery
	cache    cache.Service
	cacheTTL time.Duration
	limiter  *ratelimit.Limiter
}

// NewBarsEchoHandler wires the handler. c and limiter may be nil.
func NewBarsEchoHandler(logger *xlogger.Logger, query *usecase.BarQuery, c cache.Service, cacheTTL time.Duration, limiter *ratelimit.Limiter) *BarsEchoHandler {
	metrics.Register()
	return &BarsEchoHandler{logger: logger, query: query, cache: c, cacheTTL: cacheTTL, limiter: limiter}
}

func (h *BarsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1", h.rateLimit)
	g.GET("/bars", h.Bars)
	g.GET("/sessions", h.Sessions)
}

func (h *BarsEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
		}
		return next(c)
	}
}

// Bars handles GET /api/v1/bars?contract=CU2402.SHF&trade_date=20240105&fields=timestamp,close&limit=100.
func (h *BarsEchoHandler) Bars(c echo.Context) error {
	const endpoint = "bars"
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tradeDate, err := util.ParseDate(req.TradeDate, models.ExchangeLocation)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.FieldError("ERR_INVALID_DATE", "trade_date", err.Error()))
	}
	contract := strings.ToUpper(strings.TrimSpace(req.Contract))
	fields := xhttp.SplitList(req.Fields)
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0)

	ctx := c.Request().Context()
	key := cache.GenerateKey("bars", contract, req.TradeDate, cache.HashKey(strings.Join(fields, ",")))

	var resp BarsResponse
	if h.cache != nil && h.cache.Get(ctx, key, &resp) == nil {
		metrics.APICacheHits.WithLabelValues(endpoint).Inc()
	} else {
		res, err := h.query.Bars(ctx, contract, tradeDate, fields)
		if err != nil {
			return h.fail(c, endpoint, err)
		}
		resp = BarsResponse{
			Contract:  res.Contract,
			TradeDate: res.TradeDate,
			Fields:    res.Table.Fields,
			Rows:      res.Table.Rows,
			Total:     res.Table.Len(),
			Stats:     res.Stats,
		}
		if h.cache != nil {
			if err := h.cache.Set(ctx, key, resp, h.cacheTTL); err != nil {
				h.logger.Warn("bars cache set failed", xlogger.String("key", key), xlogger.Error(err))
			}
		}
	}
	if limit > 0 && limit < len(resp.Rows) {
		resp.Rows = resp.Rows[:limit]
	}
	return xhttp.SuccessResponse(c, resp)
}

// Sessions handles GET /api/v1/sessions?instrument=IF.CFX&trade_date=20150601.
func (h *BarsEchoHandler) Sessions(c echo.Context) error {
	const endpoint = "sessions"
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tradeDate, err := util.ParseDate(req.TradeDate, models.ExchangeLocation)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.FieldError("ERR_INVALID_DATE", "trade_date", err.Error()))
	}
	p, err := h.query.Session(req.Instrument, tradeDate)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, sessionResponse(strings.ToUpper(req.Instrument), req.TradeDate, p))
}

func sessionResponse(instrument, tradeDate string, p session.Policy) SessionResponse {
	resp := SessionResponse{Instrument: instrument, TradeDate: tradeDate, Kind: p.Kind.String()}
	for _, z := range p.Zones {
		resp.Zones = append(resp.Zones, ZoneView{Begin: z.Begin, End: z.End, Snap: z.Snap.String()})
	}
	for _, w := range p.Windows {
		resp.Windows = append(resp.Windows, WindowView{Begin: w.Begin, End: w.End})
	}
	return resp
}

func (h *BarsEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps domain errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrUnknownField):
		return xhttp.FieldError("ERR_UNKNOWN_FIELD", "fields", err.Error()).
			WithParam("options", models.BarFields).WithError(err)
	case errors.Is(err, models.ErrUnsupportedInstrument):
		return xhttp.FieldError("ERR_UNSUPPORTED_INSTRUMENT", "", err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidContract):
		return xhttp.FieldError("ERR_INVALID_CONTRACT", "", err.Error()).WithError(err)
	case errors.Is(err, models.ErrEmptyArchive):
		return xhttp.NotFoundError("no ticks archived for this contract and date").WithError(err)
	case errors.Is(err, models.ErrDateNotInCalendar):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("request failed").WithError(err)
	}
}
