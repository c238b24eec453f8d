package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"HourCast/internal/domain/models"
	"HourCast/internal/repository"
)

func newTestLedgerUseCase(store *repository.MemoryStore, feed *stubFeed) *LedgerUseCase {
	if feed == nil {
		feed = &stubFeed{}
	}
	return NewLedgerUseCase(store, store, testRefresher(store, feed), nopMetrics{})
}

func fullPredictions(value string) []string {
	out := make([]string, models.HoursPerDay)
	for h := range out {
		out[h] = value
	}
	return out
}

func TestSetPredictionCreatesDraft(t *testing.T) {
	store := repository.NewMemoryStore()
	uc := newTestLedgerUseCase(store, nil)
	now := time.Date(2025, 9, 30, 10, 30, 0, 0, time.UTC)

	view, err := uc.SetPrediction(context.Background(), "u1", "alice", "2025-09-30", 14, "2655", now)
	if err != nil {
		t.Fatalf("set prediction: %v", err)
	}
	if view.Entry.Predictions[14] == nil || !view.Entry.Predictions[14].Equal(dec("2655")) {
		t.Fatalf("prediction not recorded: %v", view.Entry.Predictions[14])
	}
	if view.Entry.Submitted() {
		t.Fatal("draft must not be submitted")
	}
	if got, err := store.Get(context.Background(), "u1", "2025-09-30"); err != nil || got.Predictions[14] == nil {
		t.Fatalf("draft not persisted: %v", err)
	}
}

func TestSetPredictionRejectsStartedHour(t *testing.T) {
	store := repository.NewMemoryStore()
	uc := newTestLedgerUseCase(store, nil)
	now := time.Date(2025, 9, 30, 10, 30, 0, 0, time.UTC)

	// hour 10 began at 10:00, so it is locked at 10:30
	if _, err := uc.SetPrediction(context.Background(), "u1", "alice", "2025-09-30", 10, "2655", now); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for started hour, got %v", err)
	}
	// the boundary instant itself locks the hour
	exact := time.Date(2025, 9, 30, 11, 0, 0, 0, time.UTC)
	if _, err := uc.SetPrediction(context.Background(), "u1", "alice", "2025-09-30", 11, "2655", exact); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error at bucket start, got %v", err)
	}
	// the very next hour is still open
	if _, err := uc.SetPrediction(context.Background(), "u1", "alice", "2025-09-30", 12, "2655", exact); err != nil {
		t.Fatalf("future hour should be editable: %v", err)
	}
}

func TestSetPredictionRejectsBadValues(t *testing.T) {
	store := repository.NewMemoryStore()
	uc := newTestLedgerUseCase(store, nil)
	now := time.Date(2025, 9, 30, 1, 0, 0, 0, time.UTC)

	cases := []struct {
		hour  int
		value string
	}{
		{25, "100"},
		{-1, "100"},
		{12, "abc"},
		{12, "-5"},
		{12, ""},
	}
	for _, tc := range cases {
		if _, err := uc.SetPrediction(context.Background(), "u1", "alice", "2025-09-30", tc.hour, tc.value, now); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("hour=%d value=%q: expected validation error, got %v", tc.hour, tc.value, err)
		}
	}
}

func TestSubmitThenResubmitConflicts(t *testing.T) {
	store := repository.NewMemoryStore()
	uc := newTestLedgerUseCase(store, nil)
	now := time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC)

	view, err := uc.Submit(context.Background(), "u1", "alice", "2025-09-30", fullPredictions("2655"), now)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !view.Entry.Submitted() {
		t.Fatal("entry should be submitted")
	}

	if _, err := uc.Submit(context.Background(), "u1", "alice", "2025-09-30", fullPredictions("2700"), now.Add(time.Minute)); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected conflict on second submission, got %v", err)
	}
	// predictions after a submission are rejected too
	if _, err := uc.SetPrediction(context.Background(), "u1", "alice", "2025-09-30", 23, "2700", now.Add(time.Minute)); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected conflict on post-submit edit, got %v", err)
	}
}

func TestSubmitPartialPredictions(t *testing.T) {
	store := repository.NewMemoryStore()
	uc := newTestLedgerUseCase(store, nil)
	now := time.Date(2025, 9, 30, 1, 0, 0, 0, time.UTC)

	preds := make([]string, models.HoursPerDay)
	preds[5] = "2655"
	view, err := uc.Submit(context.Background(), "u1", "alice", "2025-09-30", preds, now)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if view.Entry.Predictions[5] == nil {
		t.Fatal("hour 5 prediction lost")
	}
	for h := 0; h < models.HoursPerDay; h++ {
		if h == 5 {
			continue
		}
		if view.Entry.Predictions[h] != nil {
			t.Fatalf("hour %d should be unset", h)
		}
	}

	if _, err := uc.Submit(context.Background(), "u2", "bob", "2025-09-30", []string{"2655"}, now); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for short array, got %v", err)
	}
}

func TestSubmitMergesActualsSnapshot(t *testing.T) {
	store := repository.NewMemoryStore()
	date := "2025-09-30"
	snap := models.NewHourlyActuals(date, models.SlotPending)
	snap.Slots[0] = priced("2655")
	snap.Slots[1] = priced("2600")
	feed := &stubFeed{result: snap}
	uc := newTestLedgerUseCase(store, feed)

	// forecast recorded the evening before, while hour 0 was still open
	eve := time.Date(2025, 9, 29, 23, 0, 0, 0, time.UTC)
	if _, err := uc.SetPrediction(context.Background(), "u1", "alice", date, 0, "2655", eve); err != nil {
		t.Fatalf("set prediction: %v", err)
	}

	now := time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC)
	if err := uc.refresher.RefreshOnce(context.Background(), now); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	view, err := uc.Submit(context.Background(), "u1", "alice", date, make([]string, models.HoursPerDay), now)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if view.Entry.Actuals[0].State != models.SlotPriced || !view.Entry.Actuals[0].Price.Equal(dec("2655")) {
		t.Fatalf("actual 0 not merged: %+v", view.Entry.Actuals[0])
	}
	if view.HourPoints[0] != 10 {
		t.Fatalf("expected 10 points for exact hour 0, got %d", view.HourPoints[0])
	}
	if view.HourPoints[2] != 0 {
		t.Fatalf("pending hour must score 0, got %d", view.HourPoints[2])
	}
}

func TestSubmitIgnoresValuesForStartedHours(t *testing.T) {
	store := repository.NewMemoryStore()
	date := "2025-09-30"
	snap := models.NewHourlyActuals(date, models.SlotPending)
	for h := 0; h < 22; h++ {
		snap.Slots[h] = priced("2600")
	}
	feed := &stubFeed{result: snap}
	uc := newTestLedgerUseCase(store, feed)

	// one honest forecast, placed while hour 5 was still open
	early := time.Date(2025, 9, 30, 1, 0, 0, 0, time.UTC)
	if _, err := uc.SetPrediction(context.Background(), "u1", "alice", date, 5, "9999", early); err != nil {
		t.Fatalf("set prediction: %v", err)
	}

	// by 22:30 hours 0-22 have started and 22 closes are known
	late := time.Date(2025, 9, 30, 22, 30, 0, 0, time.UTC)
	if err := uc.refresher.RefreshOnce(context.Background(), late); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// submitting "predictions" equal to those closes must not bank points
	preds := make([]string, models.HoursPerDay)
	for h := 0; h < 22; h++ {
		preds[h] = "2600"
	}
	preds[23] = "2623"
	view, err := uc.Submit(context.Background(), "u1", "alice", date, preds, late)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if view.Entry.Predictions[0] != nil {
		t.Fatalf("started hour accepted a late value: %v", view.Entry.Predictions[0])
	}
	if view.Entry.Predictions[5] == nil || !view.Entry.Predictions[5].Equal(dec("9999")) {
		t.Fatalf("pre-lock forecast lost: %v", view.Entry.Predictions[5])
	}
	if view.Entry.Predictions[23] == nil || !view.Entry.Predictions[23].Equal(dec("2623")) {
		t.Fatalf("still-open hour rejected: %v", view.Entry.Predictions[23])
	}
	if view.TotalPoints != 0 {
		t.Fatalf("late submission banked %d points from known closes", view.TotalPoints)
	}
}

func TestRefreshNeverRegressesPricedSlots(t *testing.T) {
	store := repository.NewMemoryStore()
	date := "2025-09-30"
	now := time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC)

	good := models.NewHourlyActuals(date, models.SlotPending)
	good.Slots[0] = priced("2655")
	feed := &stubFeed{result: good}
	refresher := testRefresher(store, feed)

	e := models.NewLedgerEntry("id", "u1", "alice", date, now)
	if err := store.Insert(context.Background(), e); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := refresher.RefreshOnce(context.Background(), now); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// later cycle reports hour 0 as a fetch error; the stored price must stay
	bad := models.NewHourlyActuals(date, models.SlotError)
	feed.result = bad
	if err := refresher.RefreshOnce(context.Background(), now.Add(time.Hour)); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	got, err := store.Get(context.Background(), "u1", date)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Actuals[0].State != models.SlotPriced || !got.Actuals[0].Price.Equal(dec("2655")) {
		t.Fatalf("priced slot regressed: %+v", got.Actuals[0])
	}
	if got.Actuals[1].State != models.SlotError {
		t.Fatalf("non-priced slot should take the error state, got %v", got.Actuals[1].State)
	}
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	store := repository.NewMemoryStore()
	date := "2025-09-30"
	now := time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC)

	good := models.NewHourlyActuals(date, models.SlotPending)
	good.Slots[0] = priced("2655")
	feed := &stubFeed{result: good}
	refresher := testRefresher(store, feed)

	if err := refresher.RefreshOnce(context.Background(), now); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	feed.err = models.ErrFetch
	if err := refresher.RefreshOnce(context.Background(), now.Add(time.Hour)); err == nil {
		t.Fatal("expected fetch error")
	}

	snap := refresher.Snapshot(date)
	if snap[0].State != models.SlotPriced {
		t.Fatalf("failed cycle clobbered snapshot: %+v", snap[0])
	}
}

func TestGetMissingEntry(t *testing.T) {
	store := repository.NewMemoryStore()
	uc := newTestLedgerUseCase(store, nil)
	now := time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC)

	if _, err := uc.Get(context.Background(), "nobody", "2025-09-30", now); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
