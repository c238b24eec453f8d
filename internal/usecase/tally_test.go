package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"HourCast/internal/domain/models"
	"HourCast/internal/repository"
)

// entryWorth builds a submitted entry scoring exactly 37 points:
// three exact hours (30), one within 2% (5), one within 5% (2).
func entryWorth37(userID, date string, submitted time.Time) *models.LedgerEntry {
	e := models.NewLedgerEntry("id-"+userID, userID, userID, date, submitted)
	for h := 0; h < 3; h++ {
		e.Predictions[h] = decp("100")
		e.Actuals[h] = priced("100")
	}
	e.Predictions[3] = decp("101.5")
	e.Actuals[3] = priced("100")
	e.Predictions[4] = decp("103")
	e.Actuals[4] = priced("100")
	e.SubmittedAt = &submitted
	return e
}

func newTestScheduler(store *repository.MemoryStore) *TallyScheduler {
	return NewTallyScheduler(store, store, nopEvents{}, nopMetrics{}, testLogger(), nil, 3*time.Minute, 2, "tally.completed")
}

func TestTallyAppliesOnceAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	now := time.Date(2025, 10, 1, 0, 3, 0, 0, time.UTC) // cutover instant
	yesterday := "2025-09-30"

	if err := store.Ensure(ctx, "u1", "alice"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// prior cumulative score of 100
	if _, err := store.ApplyTally(ctx, "u1", "2025-09-29", 100); err != nil {
		t.Fatalf("seed tally: %v", err)
	}
	if err := store.Insert(ctx, entryWorth37("u1", yesterday, now.Add(-20*time.Hour))); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sched := newTestScheduler(store)
	if err := sched.RunOnce(ctx, now); err != nil {
		t.Fatalf("run once: %v", err)
	}

	u, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.CumulativePoints != 137 {
		t.Fatalf("expected 137 cumulative points, got %d", u.CumulativePoints)
	}
	if u.LastTalliedDate != yesterday {
		t.Fatalf("expected lastTalliedDate %s, got %s", yesterday, u.LastTalliedDate)
	}

	// second run the same day must not double-apply
	if err := sched.RunOnce(ctx, now.Add(time.Minute)); err != nil {
		t.Fatalf("second run: %v", err)
	}
	u, _ = store.GetUser(ctx, "u1")
	if u.CumulativePoints != 137 {
		t.Fatalf("tally applied twice: cumulative %d", u.CumulativePoints)
	}
}

func TestTallyLookbackCatchesMissedDay(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	if err := store.Ensure(ctx, "u1", "alice"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	// entries for two consecutive days, neither tallied (process was down
	// over the first cutover)
	sub := time.Date(2025, 9, 29, 10, 0, 0, 0, time.UTC)
	if err := store.Insert(ctx, entryWorth37("u1", "2025-09-29", sub)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, entryWorth37("u1", "2025-09-30", sub.AddDate(0, 0, 1))); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sched := newTestScheduler(store)
	now := time.Date(2025, 10, 1, 0, 3, 0, 0, time.UTC)
	if err := sched.RunOnce(ctx, now); err != nil {
		t.Fatalf("run once: %v", err)
	}

	u, _ := store.GetUser(ctx, "u1")
	if u.CumulativePoints != 74 {
		t.Fatalf("expected both days tallied (74), got %d", u.CumulativePoints)
	}
	if u.LastTalliedDate != "2025-09-30" {
		t.Fatalf("expected lastTalliedDate 2025-09-30, got %s", u.LastTalliedDate)
	}
}

func TestTallyNoEntryIsNoop(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	if err := store.Ensure(ctx, "u1", "alice"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	sched := newTestScheduler(store)
	if err := sched.RunOnce(ctx, time.Date(2025, 10, 1, 0, 3, 0, 0, time.UTC)); err != nil {
		t.Fatalf("run once: %v", err)
	}
	u, _ := store.GetUser(ctx, "u1")
	if u.CumulativePoints != 0 || u.LastTalliedDate != "" {
		t.Fatalf("no-op expected, got %+v", u)
	}
	if sched.State() != TallyDone {
		t.Fatalf("expected done state, got %s", sched.State())
	}
}

type captureEvents struct {
	mu   sync.Mutex
	msgs []interface{}
}

func (c *captureEvents) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	c.mu.Lock()
	c.msgs = append(c.msgs, payload)
	c.mu.Unlock()
	return nil
}

func (c *captureEvents) Close() error { return nil }

func (c *captureEvents) tallyEvents() []models.TallyCompletedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.TallyCompletedEvent
	for _, m := range c.msgs {
		if ev, ok := m.(models.TallyCompletedEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

// userLookupDownStore applies tallies normally but cannot read scores back.
type userLookupDownStore struct {
	*repository.MemoryStore
}

func (userLookupDownStore) GetUser(context.Context, string) (*models.UserScore, error) {
	return nil, errors.New("user lookup down")
}

func TestTallyEventCarriesCumulative(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	if err := store.Ensure(ctx, "u1", "alice"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	sub := time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC)
	if err := store.Insert(ctx, entryWorth37("u1", "2025-09-30", sub)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	events := &captureEvents{}
	sched := NewTallyScheduler(store, store, events, nopMetrics{}, testLogger(), nil, 3*time.Minute, 2, "tally.completed")
	if err := sched.RunOnce(ctx, time.Date(2025, 10, 1, 0, 3, 0, 0, time.UTC)); err != nil {
		t.Fatalf("run once: %v", err)
	}

	evs := events.tallyEvents()
	if len(evs) != 1 {
		t.Fatalf("expected one tally event, got %d", len(evs))
	}
	if evs[0].Cumulative == nil || *evs[0].Cumulative != 37 {
		t.Fatalf("expected cumulative 37, got %v", evs[0].Cumulative)
	}
}

func TestTallyEventOmitsCumulativeWhenLookupFails(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	if err := store.Ensure(ctx, "u1", "alice"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	sub := time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC)
	if err := store.Insert(ctx, entryWorth37("u1", "2025-09-30", sub)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	events := &captureEvents{}
	sched := NewTallyScheduler(store, userLookupDownStore{store}, events, nopMetrics{}, testLogger(), nil, 3*time.Minute, 2, "tally.completed")
	if err := sched.RunOnce(ctx, time.Date(2025, 10, 1, 0, 3, 0, 0, time.UTC)); err != nil {
		t.Fatalf("run once: %v", err)
	}

	// the increment itself still lands
	u, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.CumulativePoints != 37 {
		t.Fatalf("expected 37 cumulative points, got %d", u.CumulativePoints)
	}

	evs := events.tallyEvents()
	if len(evs) != 1 {
		t.Fatalf("expected one tally event, got %d", len(evs))
	}
	if evs[0].Cumulative != nil {
		t.Fatalf("cumulative must be unset when unknown, got %d", *evs[0].Cumulative)
	}
	if evs[0].Points != 37 {
		t.Fatalf("expected 37 points on the event, got %d", evs[0].Points)
	}
}

func TestTallyPendingHoursContributeNothing(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	if err := store.Ensure(ctx, "u1", "alice"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	sub := time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC)
	e := models.NewLedgerEntry("id", "u1", "alice", "2025-09-30", sub)
	e.Predictions[0] = decp("100")
	e.Actuals[0] = priced("100") // 10 points
	e.Predictions[1] = decp("100")
	e.Actuals[1] = models.ActualSlot{State: models.SlotError} // fetch error, no score
	e.SubmittedAt = &sub
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sched := newTestScheduler(store)
	if err := sched.RunOnce(ctx, time.Date(2025, 10, 1, 0, 3, 0, 0, time.UTC)); err != nil {
		t.Fatalf("run once: %v", err)
	}
	u, _ := store.GetUser(ctx, "u1")
	if u.CumulativePoints != 10 {
		t.Fatalf("expected 10 points (error hour excluded), got %d", u.CumulativePoints)
	}
}
