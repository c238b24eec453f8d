package repository

import (
	"context"
	"net/http"
	"time"

	"HourCast/internal/domain/models"
)

// PriceFeed normalizes heterogeneous upstream price history into exactly 24
// hourly closing prices aligned to UTC buckets of date. Buckets whose end is
// after nowUTC are Pending. On upstream failure the returned result has all
// slots in SlotError and the error is non-nil, so callers can tell stale good
// data from a fresh failure.
type PriceFeed interface {
	FetchHourlyActuals(ctx context.Context, date string, nowUTC time.Time) (*models.HourlyActuals, error)
}

// MarketStream is a live price ticker (websocket).
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// LedgerStore persists prediction ledger entries. One entry per
// (userID, date) is authoritative; Insert returns models.ErrConflict on a
// duplicate key.
type LedgerStore interface {
	Insert(ctx context.Context, e *models.LedgerEntry) error
	Update(ctx context.Context, e *models.LedgerEntry) error
	Get(ctx context.Context, userID, date string) (*models.LedgerEntry, error)
	ListByDate(ctx context.Context, date string) ([]*models.LedgerEntry, error)
}

// UserStore persists cumulative scores. ApplyTally must be a single atomic
// conditional update keyed on last_tallied_date: it adds points and advances
// the date only if the user has not been tallied for that date (or any later
// one) yet, and reports whether the increment was applied.
type UserStore interface {
	Ensure(ctx context.Context, userID, displayName string) error
	GetUser(ctx context.Context, userID string) (*models.UserScore, error)
	ApplyTally(ctx context.Context, userID, date string, points int64) (bool, error)
}

// PriceArchive keeps reconciled hourly closes for history and audit.
type PriceArchive interface {
	Append(ctx context.Context, closes []models.HourClose) error
	Closes(ctx context.Context, date string) ([]models.HourClose, error)
}

// EventPublisher ships integration events (and aggregated logs) to the
// message bus.
type EventPublisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
	Close() error
}

// Identity resolves the authenticated user from a request. Authentication
// itself is an external collaborator; the core only needs "who is this".
type Identity interface {
	Resolve(r *http.Request) (userID, displayName string, err error)
}

// Metrics records operational measurements.
type Metrics interface {
	RecordFetch(outcome string)
	RecordTally(outcome string)
	RecordPoints(points int)
	RecordLastPrice(symbol string, price float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
