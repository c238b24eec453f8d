package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"HourCast/internal/domain/models"
	"HourCast/internal/repository"
	"HourCast/internal/service/identity"
	"HourCast/internal/usecase"
	applogger "HourCast/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string)              {}
func (nopMetrics) RecordTally(string)              {}
func (nopMetrics) RecordPoints(int)                {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLatency(string, float64)   {}

type nopEvents struct{}

func (nopEvents) PublishMessage(context.Context, string, interface{}) error { return nil }
func (nopEvents) Close() error                                              { return nil }

type pendingFeed struct{}

func (pendingFeed) FetchHourlyActuals(_ context.Context, date string, _ time.Time) (*models.HourlyActuals, error) {
	return models.NewHourlyActuals(date, models.SlotPending), nil
}

func newTestHandler(t *testing.T) (*PredictionEchoHandler, *echo.Echo) {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store := repository.NewMemoryStore()
	refresher := usecase.NewActualsRefresher(pendingFeed{}, store, repository.NoopPriceArchive{}, nopEvents{}, nopMetrics{}, l, time.Hour, 2, "refresh")
	ledger := usecase.NewLedgerUseCase(store, store, refresher, nopMetrics{})
	leaderboard := usecase.NewLeaderboardUseCase(store, nil, time.Minute)
	quotes := usecase.NewQuoteHolder(nopMetrics{})

	h := NewPredictionEchoHandler(l, ledger, leaderboard, quotes, repository.NoopPriceArchive{}, identity.NewHeaderIdentity())
	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func doJSON(e *echo.Echo, method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set(identity.UserIDHeader, userID)
		req.Header.Set(identity.DisplayNameHeader, "Alice")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// apiStatus pulls the status field out of the response envelope.
func apiStatus(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body.Status
}

func submitBody() string {
	preds := make([]string, models.HoursPerDay)
	for h := range preds {
		preds[h] = "2655"
	}
	b, _ := json.Marshal(map[string]interface{}{
		"date":        "2025-09-30",
		"predictions": preds,
	})
	return string(b)
}

func TestRoutesRequireIdentity(t *testing.T) {
	_, e := newTestHandler(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPut, "/api/ledger/prediction"},
		{http.MethodPost, "/api/ledger"},
		{http.MethodGet, "/api/ledger"},
	} {
		rec := doJSON(e, tc.method, tc.path, "", "{}")
		if got := apiStatus(t, rec); got != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, got)
		}
	}
}

func TestSetPredictionAndGet(t *testing.T) {
	_, e := newTestHandler(t)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	body, _ := json.Marshal(map[string]interface{}{
		"date": tomorrow, "hour": 14, "value": "2655",
	})
	rec := doJSON(e, http.MethodPut, "/api/ledger/prediction", "u1", string(body))
	if got := apiStatus(t, rec); got != http.StatusOK {
		t.Fatalf("set prediction: expected 200, got %d (%s)", got, rec.Body.String())
	}

	rec = doJSON(e, http.MethodGet, "/api/ledger?date="+tomorrow, "u1", "")
	if got := apiStatus(t, rec); got != http.StatusOK {
		t.Fatalf("get ledger: expected 200, got %d", got)
	}
	if !strings.Contains(rec.Body.String(), "2655") {
		t.Fatalf("entry missing prediction: %s", rec.Body.String())
	}
}

func TestSetPredictionValidation(t *testing.T) {
	_, e := newTestHandler(t)

	// hour out of range is caught by request validation
	rec := doJSON(e, http.MethodPut, "/api/ledger/prediction", "u1", `{"hour":25,"value":"100"}`)
	if got := apiStatus(t, rec); got != http.StatusBadRequest {
		t.Fatalf("expected 400 for hour 25, got %d", got)
	}
	// non-numeric value is caught by the use case
	rec = doJSON(e, http.MethodPut, "/api/ledger/prediction", "u1", `{"hour":23,"value":"abc"}`)
	if got := apiStatus(t, rec); got != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad value, got %d", got)
	}
}

func TestSubmitOnceThenConflict(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/ledger", "u1", submitBody())
	if got := apiStatus(t, rec); got != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d (%s)", got, rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, "/api/ledger", "u1", submitBody())
	if got := apiStatus(t, rec); got != http.StatusConflict {
		t.Fatalf("resubmit: expected 409, got %d", got)
	}
}

func TestLeaderboardIsPublic(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/ledger", "u1", submitBody())
	if got := apiStatus(t, rec); got != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d", got)
	}

	// no identity header required
	rec = doJSON(e, http.MethodGet, "/api/leaderboard?date=2025-09-30", "", "")
	if got := apiStatus(t, rec); got != http.StatusOK {
		t.Fatalf("leaderboard: expected 200, got %d (%s)", got, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "u1") {
		t.Fatalf("leaderboard missing entry: %s", rec.Body.String())
	}
}

func TestPriceBeforeFirstTick(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodGet, "/api/price", "", "")
	if got := apiStatus(t, rec); got != http.StatusNotFound {
		t.Fatalf("price: expected 404 before first tick, got %d", got)
	}
}

func TestHealth(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doJSON(e, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
}
