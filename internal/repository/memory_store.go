package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"HourCast/internal/domain/models"
	"HourCast/internal/domain/repository"
)

// MemoryStore implements LedgerStore and UserStore in memory. Used by tests
// and local development; semantics mirror the PostgreSQL store, including the
// (user, date) uniqueness constraint and the conditional tally update.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*models.LedgerEntry // key: userID + "/" + date
	users   map[string]*models.UserScore
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*models.LedgerEntry),
		users:   make(map[string]*models.UserScore),
	}
}

func entryKey(userID, date string) string { return userID + "/" + date }

func (s *MemoryStore) Insert(_ context.Context, e *models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := entryKey(e.UserID, e.Date)
	if _, ok := s.entries[k]; ok {
		return fmt.Errorf("entry %s/%s: %w", e.UserID, e.Date, models.ErrConflict)
	}
	s.entries[k] = e.Clone()
	return nil
}

func (s *MemoryStore) Update(_ context.Context, e *models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := entryKey(e.UserID, e.Date)
	if _, ok := s.entries[k]; !ok {
		return fmt.Errorf("entry %s/%s: %w", e.UserID, e.Date, models.ErrNotFound)
	}
	s.entries[k] = e.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, userID, date string) (*models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryKey(userID, date)]
	if !ok {
		return nil, fmt.Errorf("entry %s/%s: %w", userID, date, models.ErrNotFound)
	}
	return e.Clone(), nil
}

func (s *MemoryStore) ListByDate(_ context.Context, date string) ([]*models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.LedgerEntry
	for _, e := range s.entries {
		if e.Date == date {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *MemoryStore) Ensure(_ context.Context, userID, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.DisplayName = displayName
		return nil
	}
	s.users[userID] = &models.UserScore{UserID: userID, DisplayName: displayName}
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, userID string) (*models.UserScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) ApplyTally(_ context.Context, userID, date string, points int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	if u.LastTalliedDate >= date {
		return false, nil
	}
	u.CumulativePoints += points
	u.LastTalliedDate = date
	return true, nil
}

var (
	_ repository.LedgerStore = (*MemoryStore)(nil)
	_ repository.UserStore   = (*MemoryStore)(nil)
)
