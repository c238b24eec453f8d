package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"HourCast/internal/domain/models"
	drepo "HourCast/internal/domain/repository"
	"HourCast/internal/scoring"
	"HourCast/pkg/util"
)

// LedgerUseCase owns validation and mutation rules for prediction ledger
// entries. Each mutation loads the stored entry, produces a new version, and
// writes it back; derived fields (differences, points) are always computed on
// read.
type LedgerUseCase struct {
	ledgers   drepo.LedgerStore
	users     drepo.UserStore
	refresher *ActualsRefresher
	metrics   drepo.Metrics
}

// NewLedgerUseCase creates the ledger use case.
func NewLedgerUseCase(ledgers drepo.LedgerStore, users drepo.UserStore, refresher *ActualsRefresher, metrics drepo.Metrics) *LedgerUseCase {
	return &LedgerUseCase{ledgers: ledgers, users: users, refresher: refresher, metrics: metrics}
}

// EntryView is a ledger entry with its derived differences and points.
type EntryView struct {
	Entry       *models.LedgerEntry `json:"entry"`
	Differences []*decimal.Decimal  `json:"differences"`
	HourPoints  []int               `json:"hour_points"`
	TotalPoints int                 `json:"total_points"`
}

func viewOf(e *models.LedgerEntry) *EntryView {
	return &EntryView{
		Entry:       e,
		Differences: scoring.Differences(e),
		HourPoints:  scoring.HourPoints(e),
		TotalPoints: scoring.TotalPoints(e),
	}
}

// SetPrediction records one hour's forecast on the user's draft entry for
// date, creating the draft on first use. Buckets whose hour has already
// started are locked, and submitted entries are immutable.
func (uc *LedgerUseCase) SetPrediction(ctx context.Context, userID, displayName, date string, hour int, value string, now time.Time) (*EntryView, error) {
	now = now.UTC()
	if date == "" {
		date = util.DateString(now)
	}
	day, err := util.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if hour < 0 || hour >= models.HoursPerDay {
		return nil, fmt.Errorf("%w: hour %d out of range", models.ErrValidation, hour)
	}
	price, err := parsePrice(value)
	if err != nil {
		return nil, err
	}
	if hourLocked(day, hour, now) {
		return nil, fmt.Errorf("%w: hour %02d:00 has already started", models.ErrValidation, hour)
	}

	if err := uc.users.Ensure(ctx, userID, displayName); err != nil {
		return nil, err
	}

	e, err := uc.ledgers.Get(ctx, userID, date)
	switch {
	case err == nil:
	case isNotFound(err):
		e = models.NewLedgerEntry(uuid.NewString(), userID, displayName, date, now)
		e.MergeActuals(uc.refresher.Snapshot(date))
		if err := uc.ledgers.Insert(ctx, e); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if e.Submitted() {
		return nil, fmt.Errorf("%w: entry for %s is already submitted", models.ErrConflict, date)
	}

	e = e.Clone()
	e.Predictions[hour] = &price
	e.UpdatedAt = now
	if err := uc.ledgers.Update(ctx, e); err != nil {
		return nil, err
	}
	return viewOf(e), nil
}

// Submit finalizes the user's entry for date with a full 24-slot prediction
// array (empty strings mean unset) and the current actuals snapshot. The same
// hour lock SetPrediction enforces applies here: buckets whose hour has
// already started keep whatever forecast was stored before the lock, and
// values supplied for them are discarded. A second submission for the same
// (user, date) is rejected with ErrConflict.
func (uc *LedgerUseCase) Submit(ctx context.Context, userID, displayName, date string, predictions []string, now time.Time) (*EntryView, error) {
	now = now.UTC()
	if date == "" {
		date = util.DateString(now)
	}
	day, err := util.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if len(predictions) != models.HoursPerDay {
		return nil, fmt.Errorf("%w: expected %d predictions, got %d", models.ErrValidation, models.HoursPerDay, len(predictions))
	}

	if err := uc.users.Ensure(ctx, userID, displayName); err != nil {
		return nil, err
	}

	e, err := uc.ledgers.Get(ctx, userID, date)
	created := false
	switch {
	case err == nil:
		if e.Submitted() {
			return nil, fmt.Errorf("%w: entry for %s is already submitted", models.ErrConflict, date)
		}
		e = e.Clone()
	case isNotFound(err):
		e = models.NewLedgerEntry(uuid.NewString(), userID, displayName, date, now)
		created = true
	default:
		return nil, err
	}

	for h, v := range predictions {
		if hourLocked(day, h, now) {
			// the close may already be known for this bucket; only the
			// forecast recorded before the hour started counts
			continue
		}
		if v == "" {
			e.Predictions[h] = nil
			continue
		}
		price, err := parsePrice(v)
		if err != nil {
			return nil, fmt.Errorf("hour %d: %w", h, err)
		}
		e.Predictions[h] = &price
	}

	// persist the actuals snapshot as of submission time
	e.MergeActuals(uc.refresher.Snapshot(date))
	sub := now
	e.SubmittedAt = &sub
	e.UpdatedAt = now

	if created {
		err = uc.ledgers.Insert(ctx, e)
	} else {
		err = uc.ledgers.Update(ctx, e)
	}
	if err != nil {
		return nil, err
	}
	return viewOf(e), nil
}

// Get returns the user's entry for date with derived differences and points.
func (uc *LedgerUseCase) Get(ctx context.Context, userID, date string, now time.Time) (*EntryView, error) {
	if date == "" {
		date = util.DateString(now.UTC())
	}
	e, err := uc.ledgers.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return viewOf(e), nil
}

func parsePrice(value string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q is not a number", models.ErrValidation, value)
	}
	if price.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: price must be non-negative", models.ErrValidation)
	}
	return price, nil
}

// hourLocked reports whether the bucket can no longer be edited: its hour has
// started, or its whole day is in the past.
func hourLocked(day time.Time, hour int, now time.Time) bool {
	return !util.BucketStart(day, hour).After(now)
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
