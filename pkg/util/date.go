package util

import (
    "fmt"
    "time"
)

// DateLayout is the canonical calendar-date format, always UTC.
const DateLayout = "2006-01-02"

// HoursPerDay is the fixed bucket grid cardinality.
const HoursPerDay = 24

// DateString formats t as a UTC calendar date.
func DateString(t time.Time) string {
    return t.UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC of that day.
func ParseDate(s string) (time.Time, error) {
    t, err := time.ParseInLocation(DateLayout, s, time.UTC)
    if err != nil {
        return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
    }
    return t, nil
}

// ShiftDate returns the date string n days from s. Negative n goes back.
func ShiftDate(s string, n int) (string, error) {
    t, err := ParseDate(s)
    if err != nil {
        return "", err
    }
    return DateString(t.AddDate(0, 0, n)), nil
}

// BucketStart returns the start instant of hour bucket h on the given day.
func BucketStart(day time.Time, h int) time.Time {
    d := day.UTC()
    return time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, time.UTC)
}

// BucketEnd returns the exclusive end instant of hour bucket h, which is also
// the canonical instant actual prices are aligned to.
func BucketEnd(day time.Time, h int) time.Time {
    return BucketStart(day, h).Add(time.Hour)
}

// NextCutover returns the next daily cutover instant strictly after now.
// The cutover sits a little past midnight UTC so the final hour's close settles.
func NextCutover(now time.Time, offset time.Duration) time.Time {
    now = now.UTC()
    midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
    cut := midnight.Add(offset)
    if !cut.After(now) {
        cut = cut.AddDate(0, 0, 1)
    }
    return cut
}
