package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/daylog/time-tracker/internal/api/metrics"
	"github.com/daylog/time-tracker/internal/core/domain"
	"github.com/daylog/time-tracker/internal/core/ports"
)

const idempotencyHeader = "Idempotency-Key"

// TrackHandler exposes the tracking engine and the aggregator over HTTP.
type TrackHandler struct {
	tracking    ports.TrackingService
	summary     ports.SummaryService
	defaultDays int
	now         func() time.Time
}

// NewTrackHandler creates a TrackHandler. defaultDays is used when the history
// request carries no days parameter.
func NewTrackHandler(tracking ports.TrackingService, summary ports.SummaryService, defaultDays int) *TrackHandler {
	return &TrackHandler{
		tracking:    tracking,
		summary:     summary,
		defaultDays: defaultDays,
		now:         time.Now,
	}
}

// Start handles POST /api/track/start. A running entry is closed at the
// instant the new one opens.
//
// @Summary      Start tracking a category
// @Tags         track
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string        false  "Replays the first result for a retried request"
// @Param        body             body      startRequest  true   "Category and optional description"
// @Success      201              {object}  startResponse
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Failure      503              {object}  errorResponse
// @Router       /api/track/start [post]
func (h *TrackHandler) Start(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.tracking.Start(c.Request().Context(), ports.StartInput{
		UserID:         userID,
		Category:       req.Category,
		Description:    req.Description,
		IdempotencyKey: c.Request().Header.Get(idempotencyHeader),
	})
	if err != nil {
		metrics.TrackingErrorsTotal.WithLabelValues(errorReason(err)).Inc()
		return err
	}

	if res.Replayed {
		metrics.IdempotentReplaysTotal.Inc()
	} else {
		metrics.EntriesStartedTotal.WithLabelValues(string(res.Category)).Inc()
		observeClosed(res.Stopped)
	}

	return c.JSON(http.StatusCreated, toStartResponse(res))
}

// Stop handles POST /api/track/stop. Stopping with nothing running succeeds
// with a null entry.
//
// @Summary      Stop the running entry
// @Tags         track
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  stopResponse
// @Failure      401  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /api/track/stop [post]
func (h *TrackHandler) Stop(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	res, err := h.tracking.Stop(c.Request().Context(), userID)
	if err != nil {
		metrics.TrackingErrorsTotal.WithLabelValues(errorReason(err)).Inc()
		return err
	}
	observeClosed(res.Entry)

	return c.JSON(http.StatusOK, stopResponse{Success: true, Entry: toEntryResponsePtr(res.Entry)})
}

// Today handles GET /api/track/today.
//
// @Summary      Today's totals and the running entry
// @Tags         track
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  todayResponse
// @Failure      401  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /api/track/today [get]
func (h *TrackHandler) Today(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	summary, err := h.summary.Today(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toTodayResponse(summary, h.now()))
}

// History handles GET /api/track/history?days=N.
//
// @Summary      Per-day history, most recent first
// @Tags         track
// @Produce      json
// @Security     BearerAuth
// @Param        days  query     int  false  "Number of days to include (clamped to the configured maximum)"
// @Success      200   {object}  historyResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/track/history [get]
func (h *TrackHandler) History(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	days := h.defaultDays
	if err := echo.QueryParamsBinder(c).Int("days", &days).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "days must be an integer")
	}

	history, err := h.summary.History(c.Request().Context(), userID, days)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toHistoryResponse(history))
}

// Categories handles GET /api/categories.
//
// @Summary      Configured categories in display order
// @Tags         track
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  categoriesResponse
// @Router       /api/categories [get]
func (h *TrackHandler) Categories(c echo.Context) error {
	cats := h.tracking.Categories()
	names := make([]string, 0, len(cats))
	for _, cat := range cats {
		names = append(names, string(cat))
	}
	return c.JSON(http.StatusOK, categoriesResponse{Success: true, Categories: names})
}

func observeClosed(e *domain.TimeEntry) {
	if e == nil {
		return
	}
	metrics.EntriesStoppedTotal.WithLabelValues(string(e.Category)).Inc()
	metrics.EntryDurationSeconds.WithLabelValues(string(e.Category)).Observe(float64(e.Seconds()))
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCategory):
		return "invalid_category"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, domain.ErrEntryConflict):
		return "conflict"
	case errors.Is(err, domain.ErrIdempotencyMismatch):
		return "idempotency_mismatch"
	default:
		return "internal"
	}
}
