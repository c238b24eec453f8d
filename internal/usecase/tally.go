package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"HourCast/internal/domain/models"
	drepo "HourCast/internal/domain/repository"
	"HourCast/internal/scoring"
	"HourCast/pkg/cache"
	applogger "HourCast/pkg/logger"
	"HourCast/pkg/util"
)

// Tally scheduler states.
const (
	TallyIdle      = "idle"
	TallyScheduled = "scheduled"
	TallyRunning   = "running"
	TallyDone      = "done"
)

// TallyScheduler adds each completed day's points to every participant's
// cumulative score exactly once. It wakes at a fixed cutover a few minutes
// past midnight UTC, re-scores the stored ledger entries of the lookback
// window, and applies a single conditional increment per (user, date). The
// condition on last_tallied_date makes re-runs and concurrent instances
// no-ops.
type TallyScheduler struct {
	ledgers  drepo.LedgerStore
	users    drepo.UserStore
	events   drepo.EventPublisher
	metrics  drepo.Metrics
	logger   *applogger.Logger
	locks    cache.Service
	offset   time.Duration // cutover offset past midnight UTC
	lookback int           // days re-checked at every cutover, >= 1

	mu       sync.RWMutex
	state    string
	lastDate string
	topic    string
}

// NewTallyScheduler creates the daily tally scheduler.
func NewTallyScheduler(
	ledgers drepo.LedgerStore,
	users drepo.UserStore,
	events drepo.EventPublisher,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	locks cache.Service,
	offset time.Duration,
	lookback int,
	topic string,
) *TallyScheduler {
	if lookback < 1 {
		lookback = 1
	}
	return &TallyScheduler{
		ledgers:  ledgers,
		users:    users,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		locks:    locks,
		offset:   offset,
		lookback: lookback,
		state:    TallyIdle,
		topic:    topic,
	}
}

// State returns the scheduler state for introspection.
func (t *TallyScheduler) State() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *TallyScheduler) setState(s string) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Run executes one pass immediately (catching dates missed while the process
// was down), then sleeps until each next cutover. Cancelable via ctx.
func (t *TallyScheduler) Run(ctx context.Context) {
	if err := t.RunOnce(ctx, time.Now().UTC()); err != nil {
		t.logger.Warn("startup tally pass failed", applogger.Error(err))
	}
	for {
		t.setState(TallyScheduled)
		next := util.NextCutover(time.Now().UTC(), t.offset)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			t.setState(TallyIdle)
			return
		case <-timer.C:
			if err := t.RunOnce(ctx, time.Now().UTC()); err != nil {
				t.logger.Warn("tally pass failed", applogger.Error(err))
			}
		}
	}
}

// RunOnce tallies every un-tallied ledger entry within the lookback window
// ending yesterday. Failures leave state untouched so the next cutover (or a
// restart) retries them.
func (t *TallyScheduler) RunOnce(ctx context.Context, now time.Time) error {
	t.setState(TallyRunning)
	defer t.setState(TallyDone)
	start := time.Now()

	today := util.DateString(now)
	var firstErr error
	// oldest first, so a user missed two days ago is caught up in order
	for back := t.lookback; back >= 1; back-- {
		date, err := util.ShiftDate(today, -back)
		if err != nil {
			return err
		}
		if err := t.tallyDate(ctx, date); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	t.mu.Lock()
	t.lastDate = today
	t.mu.Unlock()
	t.metrics.RecordLatency("tally_pass", time.Since(start).Seconds())
	return firstErr
}

func (t *TallyScheduler) tallyDate(ctx context.Context, date string) error {
	entries, err := t.ledgers.ListByDate(ctx, date)
	if err != nil {
		t.metrics.RecordError("tally_list")
		return err
	}
	var firstErr error
	for _, e := range entries {
		if err := t.tallyEntry(ctx, e, date); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// tallyEntry re-scores one entry from its own stored actuals (never a fresh
// fetch, so the result is reproducible) and applies the increment once.
func (t *TallyScheduler) tallyEntry(ctx context.Context, e *models.LedgerEntry, date string) error {
	lockKey := fmt.Sprintf("tally:%s:%s", e.UserID, date)
	if t.locks != nil {
		ok, err := t.locks.TryLock(ctx, lockKey, 5*time.Minute)
		if err == nil && !ok {
			// another instance holds it; the conditional update still
			// protects correctness, this only avoids duplicate work
			t.metrics.RecordTally("locked")
			return nil
		}
		if err == nil {
			defer func() { _ = t.locks.Unlock(context.WithoutCancel(ctx), lockKey) }()
		}
	}

	points := scoring.TotalPoints(e)
	applied, err := t.users.ApplyTally(ctx, e.UserID, date, int64(points))
	if err != nil {
		t.metrics.RecordTally("error")
		t.logger.Error("tally apply failed",
			applogger.String("user", e.UserID), applogger.String("date", date), applogger.Error(err))
		return err
	}
	if !applied {
		t.metrics.RecordTally("skipped")
		return nil
	}

	t.metrics.RecordTally("applied")
	t.metrics.RecordPoints(points)
	t.logger.Info("daily tally applied",
		applogger.String("user", e.UserID),
		applogger.String("date", date),
		applogger.Int("points", points))

	var cumulative *int64
	if u, err := t.users.GetUser(ctx, e.UserID); err != nil {
		t.logger.Warn("tally cumulative lookup failed",
			applogger.String("user", e.UserID), applogger.Error(err))
	} else {
		c := u.CumulativePoints
		cumulative = &c
	}
	ev := models.TallyCompletedEvent{
		EventID:    uuid.NewString(),
		UserID:     e.UserID,
		Date:       date,
		Points:     points,
		Cumulative: cumulative,
		At:         time.Now().UTC(),
	}
	if err := t.events.PublishMessage(ctx, t.topic, ev); err != nil {
		t.logger.Warn("publish tally event failed", applogger.Error(err))
	}
	return nil
}
