package scoring

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"HourCast/internal/domain/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func priced(s string) models.ActualSlot {
	return models.ActualSlot{State: models.SlotPriced, Price: dec(s)}
}

func TestPointsForHourBreakpoints(t *testing.T) {
	cases := []struct {
		diff string
		want int
	}{
		{"0", 10},
		{"0.5", 10},
		{"1", 10}, // boundary inclusive
		{"1.0001", 5},
		{"2", 5}, // boundary inclusive
		{"2.0001", 2},
		{"5", 2}, // boundary inclusive
		{"5.0001", 0},
		{"10", 0},
	}
	for _, c := range cases {
		if got := PointsForHour(dec(c.diff)); got != c.want {
			t.Fatalf("diff %s: expected %d points, got %d", c.diff, c.want, got)
		}
	}
}

func TestPointsMonotonicNonIncreasing(t *testing.T) {
	diffs := []string{"0", "0.3", "1", "1.5", "2", "3.7", "5", "6", "50"}
	prev := PointsExact
	for _, d := range diffs {
		p := PointsForHour(dec(d))
		if p > prev {
			t.Fatalf("points increased from %d to %d at diff %s", prev, p, d)
		}
		prev = p
	}
}

func TestPercentDifferenceScenarios(t *testing.T) {
	// prediction 100, actual 100 -> 0% -> 10 points
	d, ok := PercentDifference(decp("100"), priced("100"))
	if !ok || !d.IsZero() || PointsForHour(d) != 10 {
		t.Fatalf("100/100: expected 0%% and 10 points, got %v ok=%v", d, ok)
	}
	// prediction 103, actual 100 -> 3% -> 2 points
	d, ok = PercentDifference(decp("103"), priced("100"))
	if !ok || !d.Equal(dec("3")) || PointsForHour(d) != 2 {
		t.Fatalf("103/100: expected 3%% and 2 points, got %v", d)
	}
	// prediction 110, actual 100 -> 10% -> 0 points
	d, ok = PercentDifference(decp("110"), priced("100"))
	if !ok || !d.Equal(dec("10")) || PointsForHour(d) != 0 {
		t.Fatalf("110/100: expected 10%% and 0 points, got %v", d)
	}
}

func TestPercentDifferenceUndefined(t *testing.T) {
	if _, ok := PercentDifference(nil, priced("100")); ok {
		t.Fatalf("unset prediction must be undefined")
	}
	if _, ok := PercentDifference(decp("100"), models.ActualSlot{State: models.SlotPending}); ok {
		t.Fatalf("pending actual must be undefined")
	}
	if _, ok := PercentDifference(decp("100"), models.ActualSlot{State: models.SlotError}); ok {
		t.Fatalf("fetch-error actual must be undefined, never zero deviation")
	}
	if _, ok := PercentDifference(decp("100"), priced("0")); ok {
		t.Fatalf("zero actual must be undefined, not infinite")
	}
}

func TestTotalPointsDeterministic(t *testing.T) {
	e := models.NewLedgerEntry("id", "u1", "alice", "2025-09-30", time.Now().UTC())
	e.Predictions[0] = decp("100")
	e.Actuals[0] = priced("100") // 10
	e.Predictions[1] = decp("103")
	e.Actuals[1] = priced("100") // 2
	e.Predictions[2] = decp("110")
	e.Actuals[2] = priced("100") // 0
	e.Predictions[3] = decp("99")
	e.Actuals[3] = models.ActualSlot{State: models.SlotPending} // no contribution
	e.Actuals[4] = priced("100")                                // unset prediction, no contribution

	if got := TotalPoints(e); got != 12 {
		t.Fatalf("expected 12 total points, got %d", got)
	}
	if TotalPoints(e) != TotalPoints(e) {
		t.Fatalf("recomputation must be stable")
	}

	pts := HourPoints(e)
	if pts[0] != 10 || pts[1] != 2 || pts[2] != 0 || pts[3] != 0 || pts[4] != 0 {
		t.Fatalf("unexpected hour points %v", pts)
	}
}

func TestDifferencesNilWhereUndefined(t *testing.T) {
	e := models.NewLedgerEntry("id", "u1", "alice", "2025-09-30", time.Now().UTC())
	e.Predictions[6] = decp("102")
	e.Actuals[6] = priced("100")
	diffs := Differences(e)
	if diffs[6] == nil || !diffs[6].Equal(dec("2")) {
		t.Fatalf("expected 2%% at hour 6, got %v", diffs[6])
	}
	if diffs[0] != nil {
		t.Fatalf("expected nil where undefined")
	}
}
