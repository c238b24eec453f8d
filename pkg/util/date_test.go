package util

import (
    "testing"
    "time"
)

func TestParseDateRoundTrip(t *testing.T) {
    d, err := ParseDate("2025-09-30")
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if DateString(d) != "2025-09-30" {
        t.Fatalf("round trip mismatch: %s", DateString(d))
    }
    if d.Hour() != 0 || d.Location() != time.UTC {
        t.Fatalf("expected midnight UTC, got %v", d)
    }
}

func TestParseDateInvalid(t *testing.T) {
    if _, err := ParseDate("30/09/2025"); err == nil {
        t.Fatalf("expected error")
    }
}

func TestShiftDate(t *testing.T) {
    got, err := ShiftDate("2025-10-01", -1)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if got != "2025-09-30" {
        t.Fatalf("expected 2025-09-30, got %s", got)
    }
}

func TestBucketBounds(t *testing.T) {
    day, _ := ParseDate("2025-09-30")
    start := BucketStart(day, 5)
    end := BucketEnd(day, 5)
    if start.Hour() != 5 {
        t.Fatalf("unexpected start %v", start)
    }
    if end.Sub(start) != time.Hour {
        t.Fatalf("bucket must span one hour, got %v", end.Sub(start))
    }
    if BucketEnd(day, 23).Day() != 1 {
        t.Fatalf("bucket 23 must end at next midnight, got %v", BucketEnd(day, 23))
    }
}

func TestNextCutover(t *testing.T) {
    now := time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC)
    cut := NextCutover(now, 3*time.Minute)
    want := time.Date(2025, 10, 1, 0, 3, 0, 0, time.UTC)
    if !cut.Equal(want) {
        t.Fatalf("expected %v, got %v", want, cut)
    }

    // just after midnight but before the offset: cutover is today
    now = time.Date(2025, 9, 30, 0, 1, 0, 0, time.UTC)
    cut = NextCutover(now, 3*time.Minute)
    want = time.Date(2025, 9, 30, 0, 3, 0, 0, time.UTC)
    if !cut.Equal(want) {
        t.Fatalf("expected %v, got %v", want, cut)
    }
}
