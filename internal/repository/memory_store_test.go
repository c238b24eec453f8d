package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"HourCast/internal/domain/models"
)

func TestMemoryStoreInsertConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	e := models.NewLedgerEntry("id1", "u1", "alice", "2025-09-30", now)
	if err := s.Insert(ctx, e); err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := models.NewLedgerEntry("id2", "u1", "alice", "2025-09-30", now)
	if err := s.Insert(ctx, dup); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// same user, different date is fine
	other := models.NewLedgerEntry("id3", "u1", "alice", "2025-10-01", now)
	if err := s.Insert(ctx, other); err != nil {
		t.Fatalf("insert other date: %v", err)
	}
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	e := models.NewLedgerEntry("id1", "u1", "alice", "2025-09-30", time.Now().UTC())
	if err := s.Update(ctx, e); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()
	e := models.NewLedgerEntry("id1", "u1", "alice", "2025-09-30", now)
	if err := s.Insert(ctx, e); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.Get(ctx, "u1", "2025-09-30")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Actuals[0].State = models.SlotError

	again, _ := s.Get(ctx, "u1", "2025-09-30")
	if again.Actuals[0].State != models.SlotPending {
		t.Fatal("mutation through returned entry leaked into the store")
	}
}

func TestMemoryStoreApplyTallyIsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Ensure(ctx, "u1", "alice"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	applied, err := s.ApplyTally(ctx, "u1", "2025-09-30", 37)
	if err != nil || !applied {
		t.Fatalf("first apply: applied=%v err=%v", applied, err)
	}
	// same date again: no-op
	applied, err = s.ApplyTally(ctx, "u1", "2025-09-30", 37)
	if err != nil || applied {
		t.Fatalf("repeat apply: applied=%v err=%v", applied, err)
	}
	// earlier date: no-op, never rewinds
	applied, err = s.ApplyTally(ctx, "u1", "2025-09-29", 10)
	if err != nil || applied {
		t.Fatalf("earlier date apply: applied=%v err=%v", applied, err)
	}
	// later date: applies
	applied, err = s.ApplyTally(ctx, "u1", "2025-10-01", 5)
	if err != nil || !applied {
		t.Fatalf("later date apply: applied=%v err=%v", applied, err)
	}

	u, err := s.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.CumulativePoints != 42 {
		t.Fatalf("expected 42 cumulative points, got %d", u.CumulativePoints)
	}
	if u.LastTalliedDate != "2025-10-01" {
		t.Fatalf("expected last tallied 2025-10-01, got %s", u.LastTalliedDate)
	}
}
