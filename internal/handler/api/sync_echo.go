package api

import (
	"errors"
	"net/http"
	"time"

	models "BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
	"BarSync/internal/service/pacing"
	"BarSync/internal/service/ratelimit"
	"BarSync/internal/usecase"
	xhttp "BarSync/pkg/http"
	xlogger "BarSync/pkg/logger"
	"BarSync/pkg/queue"
	"BarSync/pkg/util"

	"github.com/labstack/echo/v4"
)

// Per-symbol admission for inline syncs: a handful queued at once, refilling
// slowly. The provider-facing pace manager sits behind this and is the real
// throttle.
const (
	syncBurstCapacity = 4
	syncRefillPerSec  = 0.2
)

// SyncEchoHandler exposes the sync core over HTTP.
type SyncEchoHandler struct {
	logger  *xlogger.Logger
	sync    *usecase.SyncUseCase
	store   domrepo.CoverageProvider
	pace    *pacing.Manager
	queue   queue.QueueService // nil when the async queue is disabled
	limiter *ratelimit.Limiter
}

func NewSyncEchoHandler(
	logger *xlogger.Logger,
	sync *usecase.SyncUseCase,
	store domrepo.CoverageProvider,
	pace *pacing.Manager,
	q queue.QueueService,
) *SyncEchoHandler {
	return &SyncEchoHandler{
		logger:  logger,
		sync:    sync,
		store:   store,
		pace:    pace,
		queue:   q,
		limiter: ratelimit.New(),
	}
}

func (h *SyncEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/sync", h.Sync)
	g.GET("/sync", h.Sync)
	g.GET("/bars", h.Bars)
	g.GET("/pace", h.Pace)
}

// Sync runs a sync inline, or enqueues it when async is requested.
func (h *SyncEchoHandler) Sync(c echo.Context) error {
	req := &models.SyncRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	params, err := usecase.ParamsFromRequest(req)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	if !h.limiter.Allow("sync:"+params.Symbol, syncBurstCapacity, syncRefillPerSec) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many sync requests for symbol", http.StatusTooManyRequests))
	}

	if req.Async && h.queue != nil {
		if err := h.queue.PublishMessage(c.Request().Context(), usecase.SyncJobType, req); err != nil {
			h.logger.Error("enqueue sync failed", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("enqueue failed"))
		}
		return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{
			"status": "queued",
			"symbol": params.Symbol,
		})
	}

	start := time.Now()
	res, err := h.sync.Sync(c.Request().Context(), params)
	if err != nil {
		h.logger.Error("sync usecase error",
			xlogger.String("symbol", params.Symbol), xlogger.Error(err))
		switch {
		case errors.Is(err, models.ErrValidation):
			return xhttp.BadRequestResponse(c, err.Error())
		case errors.Is(err, models.ErrCancelled):
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_CANCELLED", "", err.Error(), http.StatusConflict))
		default:
			return xhttp.AppErrorResponse(c, xhttp.InternalError(err.Error()))
		}
	}
	h.logger.Info("sync done",
		xlogger.String("symbol", params.Symbol),
		xlogger.String("state", string(res.State)),
		xlogger.Duration("took", time.Since(start)))
	return xhttp.SuccessResponse(c, res)
}

// Bars serves stored bars without triggering any fetch.
func (h *SyncEchoHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from, ok := util.ParseTime(req.From)
	if !ok {
		return xhttp.BadRequestResponse(c, "invalid from")
	}
	to := util.ParseTimeDefault(req.To, time.Now().UTC())
	r := models.TimeRange{Start: from.UTC(), End: to.UTC()}
	if err := r.Validate(); err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	bars, err := h.store.LoadBars(c.Request().Context(), req.Symbol, domrepo.NormalizeGranularity(req.Granularity), r)
	if err != nil {
		h.logger.Error("load bars error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("load bars failed"))
	}
	if len(bars) > req.Limit {
		bars = bars[len(bars)-req.Limit:]
	}
	return xhttp.ListResponse(c, bars, int64(len(bars)))
}

// Pace reports rate-limit accounting for operators.
func (h *SyncEchoHandler) Pace(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.pace.Stats())
}
