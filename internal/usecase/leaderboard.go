package usecase

import (
	"context"
	"sort"
	"time"

	"HourCast/internal/domain/models"
	drepo "HourCast/internal/domain/repository"
	"HourCast/internal/scoring"
	"HourCast/pkg/cache"
)

// LeaderboardUseCase derives the daily ranking. It is read-only: points are
// recomputed from each entry's canonical predictions and actuals, never taken
// from a persisted cache field.
type LeaderboardUseCase struct {
	ledgers  drepo.LedgerStore
	cache    cache.Service
	cacheTTL time.Duration
}

// NewLeaderboardUseCase creates the leaderboard aggregator.
func NewLeaderboardUseCase(ledgers drepo.LedgerStore, c cache.Service, ttl time.Duration) *LeaderboardUseCase {
	return &LeaderboardUseCase{ledgers: ledgers, cache: c, cacheTTL: ttl}
}

// Compute ranks all entries for date by points descending; ties go to the
// earlier submission. Results are cached briefly to keep the read path cheap.
func (uc *LeaderboardUseCase) Compute(ctx context.Context, date string, limit int) ([]models.LeaderboardRow, error) {
	key := cache.GenerateKeyWithParams("leaderboard", date)
	if uc.cache != nil {
		var cached []models.LeaderboardRow
		if err := uc.cache.Get(ctx, key, &cached); err == nil {
			return clip(cached, limit), nil
		}
	}

	entries, err := uc.ledgers.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	rows := make([]models.LeaderboardRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, models.LeaderboardRow{
			UserID:      e.UserID,
			DisplayName: e.DisplayName,
			Points:      scoring.TotalPoints(e),
			SubmittedAt: e.SubmittedAt,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return earlier(rows[i].SubmittedAt, rows[j].SubmittedAt)
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	if uc.cache != nil {
		_ = uc.cache.Set(ctx, key, rows, uc.cacheTTL)
	}
	return clip(rows, limit), nil
}

// earlier orders submission times ascending; entries that never submitted
// sort last.
func earlier(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}

func clip(rows []models.LeaderboardRow, limit int) []models.LeaderboardRow {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
