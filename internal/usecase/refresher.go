package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"HourCast/internal/domain/models"
	drepo "HourCast/internal/domain/repository"
	applogger "HourCast/pkg/logger"
	"HourCast/pkg/util"
)

// ActualsRefresher reconciles ledger entries against the price feed on a
// fixed cadence. Each cycle covers the current UTC day plus the lookback days
// before it that may still be waiting for their tally: bucket 23 of a day
// only closes at the next midnight, so a day needs at least one reconcile
// after it ends before its final hours can score. One fetch is in flight at a
// time; a failed cycle is logged and retried on the next tick without
// disturbing the last good snapshot.
type ActualsRefresher struct {
	feed     drepo.PriceFeed
	ledgers  drepo.LedgerStore
	archive  drepo.PriceArchive
	events   drepo.EventPublisher
	metrics  drepo.Metrics
	logger   *applogger.Logger
	interval time.Duration
	lookback int
	topic    string

	mu       sync.RWMutex
	latest   *models.HourlyActuals
	archived map[string]bool // date/hour already archived
}

// NewActualsRefresher creates the refresher loop.
func NewActualsRefresher(
	feed drepo.PriceFeed,
	ledgers drepo.LedgerStore,
	archive drepo.PriceArchive,
	events drepo.EventPublisher,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	interval time.Duration,
	lookback int,
	topic string,
) *ActualsRefresher {
	if lookback < 1 {
		lookback = 1
	}
	return &ActualsRefresher{
		feed:     feed,
		ledgers:  ledgers,
		archive:  archive,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		lookback: lookback,
		topic:    topic,
		archived: make(map[string]bool),
	}
}

// Run fetches once immediately, then on every tick until ctx is done. The
// loop structure guarantees at most one fetch in flight.
func (r *ActualsRefresher) Run(ctx context.Context) {
	if err := r.RefreshOnce(ctx, time.Now().UTC()); err != nil {
		r.logger.Warn("initial actuals refresh failed", applogger.Error(err))
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RefreshOnce(ctx, time.Now().UTC()); err != nil {
				r.logger.Warn("actuals refresh failed", applogger.Error(err))
			}
		}
	}
}

// RefreshOnce runs a single reconcile cycle: the lookback days oldest first,
// then the current UTC day.
func (r *ActualsRefresher) RefreshOnce(ctx context.Context, now time.Time) error {
	start := time.Now()
	today := util.DateString(now)

	var firstErr error
	for back := r.lookback; back >= 1; back-- {
		date, err := util.ShiftDate(today, -back)
		if err != nil {
			return err
		}
		if err := r.refreshDate(ctx, date, now, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := r.refreshDate(ctx, today, now, true); err != nil && firstErr == nil {
		firstErr = err
	}

	r.metrics.RecordLatency("actuals_refresh", time.Since(start).Seconds())
	return firstErr
}

func (r *ActualsRefresher) refreshDate(ctx context.Context, date string, now time.Time, current bool) error {
	entries, err := r.ledgers.ListByDate(ctx, date)
	if err != nil {
		r.metrics.RecordError("refresh_list")
		return err
	}
	// a past day with no entries has nothing to settle, skip the upstream call
	if !current && len(entries) == 0 {
		return nil
	}

	res, err := r.feed.FetchHourlyActuals(ctx, date, now)
	if err != nil {
		r.metrics.RecordError("feed_fetch")
		// keep the previous good snapshot; an all-error result must not
		// clobber known prices
		return err
	}

	if current {
		r.mu.Lock()
		r.latest = res
		r.mu.Unlock()
	}

	r.archiveNewCloses(ctx, res)

	for _, e := range entries {
		merged := e.Clone()
		merged.MergeActuals(res.Slots)
		merged.UpdatedAt = now
		if err := r.ledgers.Update(ctx, merged); err != nil {
			r.metrics.RecordError("refresh_update")
			r.logger.Warn("refresh actuals update failed",
				applogger.String("user", e.UserID), applogger.Error(err))
		}
	}

	priced := 0
	for _, s := range res.Slots {
		if s.State == models.SlotPriced {
			priced++
		}
	}
	ev := models.ActualsRefreshedEvent{EventID: uuid.NewString(), Date: date, Priced: priced, At: now}
	if err := r.events.PublishMessage(ctx, r.topic, ev); err != nil {
		r.logger.Warn("publish refresh event failed", applogger.Error(err))
	}
	return nil
}

// Snapshot returns the latest known actuals for date, or 24 pending slots
// when no fetch has covered it yet.
func (r *ActualsRefresher) Snapshot(date string) []models.ActualSlot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest != nil && r.latest.Date == date {
		out := make([]models.ActualSlot, len(r.latest.Slots))
		copy(out, r.latest.Slots)
		return out
	}
	return models.NewHourlyActuals(date, models.SlotPending).Slots
}

// archiveNewCloses appends hours that were priced for the first time.
func (r *ActualsRefresher) archiveNewCloses(ctx context.Context, res *models.HourlyActuals) {
	var fresh []models.HourClose
	r.mu.Lock()
	for h, s := range res.Slots {
		if s.State != models.SlotPriced {
			continue
		}
		k := fmt.Sprintf("%s/%d", res.Date, h)
		if r.archived[k] {
			continue
		}
		r.archived[k] = true
		fresh = append(fresh, models.HourClose{Date: res.Date, Hour: h, Price: s.Price})
	}
	r.mu.Unlock()

	if len(fresh) == 0 {
		return
	}
	if err := r.archive.Append(ctx, fresh); err != nil {
		r.metrics.RecordError("archive_append")
		r.logger.Warn("price archive append failed", applogger.Error(err))
	}
}
