// Package scoring computes per-hour accuracy and point awards for a ledger
// entry. Everything here is a pure function of predictions and actuals, so a
// score can be re-derived at any time; persisted point values are caches only.
package scoring

import (
	"github.com/shopspring/decimal"

	"HourCast/internal/domain/models"
)

var (
	hundred = decimal.NewFromInt(100)

	// Tier boundaries are inclusive and evaluated in order.
	tierOne  = decimal.NewFromInt(1)
	tierTwo  = decimal.NewFromInt(2)
	tierFive = decimal.NewFromInt(5)
)

// Points per tier.
const (
	PointsExact  = 10 // within 1%
	PointsClose  = 5  // within 2%
	PointsNear   = 2  // within 5%
	PointsNone   = 0
	MaxDayPoints = models.HoursPerDay * PointsExact
)

// PercentDifference returns |prediction-actual|/actual*100. It is defined
// only when the prediction is set and the actual is a priced, non-zero value;
// otherwise ok is false and the hour contributes nothing.
func PercentDifference(prediction *decimal.Decimal, actual models.ActualSlot) (decimal.Decimal, bool) {
	if prediction == nil || actual.State != models.SlotPriced {
		return decimal.Decimal{}, false
	}
	if actual.Price.IsZero() {
		return decimal.Decimal{}, false
	}
	diff := prediction.Sub(actual.Price).Abs().Div(actual.Price).Mul(hundred)
	return diff, true
}

// PointsForHour maps a percent deviation to a point award: <=1% -> 10,
// <=2% -> 5, <=5% -> 2, otherwise 0.
func PointsForHour(diffPercent decimal.Decimal) int {
	switch {
	case diffPercent.LessThanOrEqual(tierOne):
		return PointsExact
	case diffPercent.LessThanOrEqual(tierTwo):
		return PointsClose
	case diffPercent.LessThanOrEqual(tierFive):
		return PointsNear
	default:
		return PointsNone
	}
}

// HourPoints returns the per-bucket awards for an entry. Hours with an unset
// prediction or a pending/error actual award zero.
func HourPoints(e *models.LedgerEntry) []int {
	pts := make([]int, models.HoursPerDay)
	for h := 0; h < models.HoursPerDay && h < len(e.Predictions) && h < len(e.Actuals); h++ {
		if diff, ok := PercentDifference(e.Predictions[h], e.Actuals[h]); ok {
			pts[h] = PointsForHour(diff)
		}
	}
	return pts
}

// TotalPoints sums the day's awards. Deterministic: the same predictions and
// actuals always produce the same total.
func TotalPoints(e *models.LedgerEntry) int {
	total := 0
	for _, p := range HourPoints(e) {
		total += p
	}
	return total
}

// Differences returns the per-bucket percent deviations for display; nil
// where undefined.
func Differences(e *models.LedgerEntry) []*decimal.Decimal {
	out := make([]*decimal.Decimal, models.HoursPerDay)
	for h := 0; h < models.HoursPerDay && h < len(e.Predictions) && h < len(e.Actuals); h++ {
		if diff, ok := PercentDifference(e.Predictions[h], e.Actuals[h]); ok {
			d := diff
			out[h] = &d
		}
	}
	return out
}
