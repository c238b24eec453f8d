package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"HourCast/internal/domain/models"
	drepo "HourCast/internal/domain/repository"
	"HourCast/internal/service/ratelimit"
	"HourCast/internal/usecase"
	xhttp "HourCast/pkg/http"
	xlogger "HourCast/pkg/logger"
)

// Write-path rate limit per user: burst of 10, 2 req/s sustained.
const (
	writeBurst  = 10
	writeRefill = 2
)

// PredictionEchoHandler exposes the prediction ledger over HTTP.
type PredictionEchoHandler struct {
	logger      *xlogger.Logger
	ledger      *usecase.LedgerUseCase
	leaderboard *usecase.LeaderboardUseCase
	quotes      *usecase.QuoteHolder
	archive     drepo.PriceArchive
	identity    drepo.Identity
	rl          *ratelimit.Limiter
}

func NewPredictionEchoHandler(
	logger *xlogger.Logger,
	ledger *usecase.LedgerUseCase,
	leaderboard *usecase.LeaderboardUseCase,
	quotes *usecase.QuoteHolder,
	archive drepo.PriceArchive,
	identity drepo.Identity,
) *PredictionEchoHandler {
	return &PredictionEchoHandler{
		logger:      logger,
		ledger:      ledger,
		leaderboard: leaderboard,
		quotes:      quotes,
		archive:     archive,
		identity:    identity,
		rl:          ratelimit.New(),
	}
}

func (h *PredictionEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.PUT("/ledger/prediction", h.SetPrediction)
	g.POST("/ledger", h.Submit)
	g.GET("/ledger", h.GetLedger)
	g.GET("/leaderboard", h.Leaderboard)
	g.GET("/price", h.Price)
	g.GET("/history", h.History)
}

// Health reports liveness.
func (h *PredictionEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// SetPrediction records one hour's forecast on the caller's draft entry.
func (h *PredictionEchoHandler) SetPrediction(c echo.Context) error {
	userID, displayName, err := h.resolve(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("authentication required"))
	}
	if !h.rl.Allow(userID+":write", writeBurst, writeRefill) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", 429))
	}

	req := &models.SetPredictionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	view, err := h.ledger.SetPrediction(c.Request().Context(), userID, displayName, req.Date, req.Hour, req.Value, time.Now().UTC())
	if err != nil {
		return h.domainError(c, "set prediction", err)
	}
	return xhttp.SuccessResponse(c, view)
}

// Submit finalizes the caller's entry for the day.
func (h *PredictionEchoHandler) Submit(c echo.Context) error {
	userID, displayName, err := h.resolve(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("authentication required"))
	}
	if !h.rl.Allow(userID+":write", writeBurst, writeRefill) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", 429))
	}

	req := &models.SubmitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	view, err := h.ledger.Submit(c.Request().Context(), userID, displayName, req.Date, req.Predictions, time.Now().UTC())
	if err != nil {
		return h.domainError(c, "submit", err)
	}
	return xhttp.CreatedResponse(c, view)
}

// GetLedger returns the caller's entry with derived differences and points.
func (h *PredictionEchoHandler) GetLedger(c echo.Context) error {
	userID, _, err := h.resolve(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("authentication required"))
	}

	req := &models.GetLedgerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	view, err := h.ledger.Get(c.Request().Context(), userID, req.Date, time.Now().UTC())
	if err != nil {
		return h.domainError(c, "get ledger", err)
	}
	return xhttp.SuccessResponse(c, view)
}

// Leaderboard returns the day's ranking. It is public, so rate limiting keys
// on the remote address.
func (h *PredictionEchoHandler) Leaderboard(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()+":read", 20, 5) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", 429))
	}

	req := &models.LeaderboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date := req.Date
	if date == "" {
		date = todayUTC()
	}

	rows, err := h.leaderboard.Compute(c.Request().Context(), date, req.Limit)
	if err != nil {
		return h.domainError(c, "leaderboard", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Price returns the latest live quote, if the stream has delivered one.
func (h *PredictionEchoHandler) Price(c echo.Context) error {
	q := h.quotes.Latest()
	if q == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no quote received yet"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, q)
}

// History returns the archived hourly closes for a date.
func (h *PredictionEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	closes, err := h.archive.Closes(c.Request().Context(), req.Date)
	if err != nil {
		return h.domainError(c, "history", err)
	}
	return xhttp.ListResponse(c, closes, int64(len(closes)))
}

func (h *PredictionEchoHandler) resolve(c echo.Context) (string, string, error) {
	return h.identity.Resolve(c.Request())
}

// domainError maps domain sentinel errors onto HTTP responses.
func (h *PredictionEchoHandler) domainError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, models.ErrValidation):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	case errors.Is(err, models.ErrConflict):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	case errors.Is(err, models.ErrNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	case errors.Is(err, models.ErrNotAuthenticated):
		return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError(err.Error()))
	default:
		h.logger.Error(op+" usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("something went wrong"))
	}
}

func todayUTC() string {
	return time.Now().UTC().Format("2006-01-02")
}
