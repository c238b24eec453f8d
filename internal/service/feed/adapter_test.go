package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"HourCast/internal/domain/models"
)

type stubSource struct {
	samples []Sample
	err     error
}

func (s *stubSource) Samples(_ context.Context, _ time.Time) ([]Sample, error) {
	return s.samples, s.err
}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string)            {}
func (nopMetrics) RecordTally(string)            {}
func (nopMetrics) RecordPoints(int)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

func hourlySamples(day time.Time, prices []float64) []Sample {
	out := make([]Sample, 0, len(prices))
	for i, p := range prices {
		out = append(out, Sample{At: day.Add(time.Duration(i+1) * time.Hour), Price: p})
	}
	return out
}

func TestFetchAlways24Slots(t *testing.T) {
	day := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)
	src := &stubSource{samples: hourlySamples(day, []float64{100, 101, 102})}
	a := NewAdapter(src, nopMetrics{})

	now := day.Add(2*time.Hour + 30*time.Minute)
	res, err := a.FetchHourlyActuals(context.Background(), "2025-09-30", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Slots) != 24 {
		t.Fatalf("expected 24 slots, got %d", len(res.Slots))
	}
}

func TestFetchPendingAfterNow(t *testing.T) {
	day := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)
	src := &stubSource{samples: hourlySamples(day, []float64{100, 101, 102, 103})}
	a := NewAdapter(src, nopMetrics{})

	// 02:30 UTC: buckets 0 and 1 have closed, bucket 2 is still open.
	now := day.Add(2*time.Hour + 30*time.Minute)
	res, _ := a.FetchHourlyActuals(context.Background(), "2025-09-30", now)

	if res.Slots[0].State != models.SlotPriced || res.Slots[1].State != models.SlotPriced {
		t.Fatalf("closed buckets must be priced: %+v", res.Slots[:2])
	}
	for h := 2; h < 24; h++ {
		if res.Slots[h].State != models.SlotPending {
			t.Fatalf("bucket %d must be pending, got %s", h, res.Slots[h].State)
		}
	}
}

func TestFetchHistoricalDayFullyPriced(t *testing.T) {
	day := time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC)
	prices := make([]float64, 24)
	for i := range prices {
		prices[i] = 2600 + float64(i)
	}
	src := &stubSource{samples: hourlySamples(day, prices)}
	a := NewAdapter(src, nopMetrics{})

	now := time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC)
	res, err := a.FetchHourlyActuals(context.Background(), "2025-09-29", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for h, s := range res.Slots {
		if s.State != models.SlotPriced {
			t.Fatalf("historical bucket %d must be priced", h)
		}
	}
	if res.Slots[0].Price.String() != "2600" {
		t.Fatalf("expected 2600, got %s", res.Slots[0].Price)
	}
}

func TestFetchNearestWithEarliestTieBreak(t *testing.T) {
	day := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)
	end := day.Add(time.Hour) // bucket 0 canonical instant
	src := &stubSource{samples: []Sample{
		{At: end.Add(-10 * time.Minute), Price: 90},
		{At: end.Add(-5 * time.Minute), Price: 100}, // tie with +5m, earliest wins
		{At: end.Add(5 * time.Minute), Price: 110},
	}}
	a := NewAdapter(src, nopMetrics{})

	res, _ := a.FetchHourlyActuals(context.Background(), "2025-09-30", day.Add(90*time.Minute))
	if res.Slots[0].Price.String() != "100" {
		t.Fatalf("expected tie to pick earliest observation, got %s", res.Slots[0].Price)
	}
}

func TestFetchRoundsToWholeUnits(t *testing.T) {
	day := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)
	src := &stubSource{samples: []Sample{{At: day.Add(time.Hour), Price: 2654.71}}}
	a := NewAdapter(src, nopMetrics{})

	res, _ := a.FetchHourlyActuals(context.Background(), "2025-09-30", day.Add(2*time.Hour))
	if res.Slots[0].Price.String() != "2655" {
		t.Fatalf("expected whole-unit rounding to 2655, got %s", res.Slots[0].Price)
	}
}

func TestFetchUpstreamFailure(t *testing.T) {
	src := &stubSource{err: errors.New("boom")}
	a := NewAdapter(src, nopMetrics{})

	res, err := a.FetchHourlyActuals(context.Background(), "2025-09-30", time.Now().UTC())
	if !errors.Is(err, models.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if len(res.Slots) != 24 {
		t.Fatalf("failed fetch must still carry 24 slots")
	}
	for h, s := range res.Slots {
		if s.State != models.SlotError {
			t.Fatalf("bucket %d must be in error state, got %s", h, s.State)
		}
	}
}
