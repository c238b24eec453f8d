package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"HourCast/internal/domain/models"
	drepo "HourCast/internal/domain/repository"
	"HourCast/pkg/util"
)

// Adapter implements the PriceFeed contract on top of a raw Source. It is
// stateless between calls; refresh cadence is the caller's concern.
type Adapter struct {
	src     Source
	metrics drepo.Metrics
}

// NewAdapter creates a price feed adapter.
func NewAdapter(src Source, metrics drepo.Metrics) drepo.PriceFeed {
	return &Adapter{src: src, metrics: metrics}
}

// FetchHourlyActuals returns exactly 24 slots for date. A bucket is priced
// with the observation nearest to its end instant (ties go to the earliest
// observation), rounded to whole currency units. Buckets whose end is after
// nowUTC stay Pending. If the upstream call fails, every slot is marked
// SlotError and a non-nil error is returned so callers never mistake a failed
// cycle for zero-deviation data.
func (a *Adapter) FetchHourlyActuals(ctx context.Context, date string, nowUTC time.Time) (*models.HourlyActuals, error) {
	day, err := util.ParseDate(date)
	if err != nil {
		return nil, err
	}
	nowUTC = nowUTC.UTC()

	samples, err := a.src.Samples(ctx, day)
	if err != nil || len(samples) == 0 {
		a.metrics.RecordFetch("error")
		res := models.NewHourlyActuals(date, models.SlotError)
		res.FetchedAt = nowUTC
		if err == nil {
			err = fmt.Errorf("empty upstream history for %s", date)
		}
		return res, fmt.Errorf("%w: %v", models.ErrFetch, err)
	}

	res := models.NewHourlyActuals(date, models.SlotPending)
	res.FetchedAt = nowUTC
	for h := 0; h < models.HoursPerDay; h++ {
		end := util.BucketEnd(day, h)
		if end.After(nowUTC) {
			continue // hour not closed yet
		}
		s := nearest(samples, end)
		res.Slots[h] = models.ActualSlot{
			State: models.SlotPriced,
			Price: decimal.NewFromFloat(s.Price).Round(0),
		}
	}

	a.metrics.RecordFetch("ok")
	return res, nil
}

// nearest picks the observation closest to the canonical instant. Samples are
// chronological, so keeping the first strict improvement makes the earliest
// observation win ties.
func nearest(samples []Sample, at time.Time) Sample {
	best := samples[0]
	bestDelta := absDuration(best.At.Sub(at))
	for _, s := range samples[1:] {
		d := absDuration(s.At.Sub(at))
		if d < bestDelta {
			best = s
			bestDelta = d
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
