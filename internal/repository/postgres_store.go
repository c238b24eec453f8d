package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"HourCast/internal/domain/models"
	"HourCast/internal/domain/repository"
)

// PostgresStore implements LedgerStore and UserStore on PostgreSQL, the
// source of truth. Prediction and actual arrays are stored as JSONB
// documents; (user_id, date) carries a uniqueness constraint so a duplicate
// submission surfaces as models.ErrConflict instead of corrupting the
// leaderboard.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema statements, idempotent.
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		predictions JSONB NOT NULL,
		actuals JSONB NOT NULL,
		submitted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS predictions_date_idx ON predictions (date)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		cumulative_points BIGINT NOT NULL DEFAULT 0,
		last_tallied_date TEXT
	)`,
}

func (s *PostgresStore) Insert(ctx context.Context, e *models.LedgerEntry) error {
	preds, actuals, err := marshalArrays(e)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO predictions (id, user_id, display_name, date, predictions, actuals, submitted_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.UserID, e.DisplayName, e.Date, preds, actuals, e.SubmittedAt, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("entry %s/%s: %w", e.UserID, e.Date, models.ErrConflict)
		}
		return fmt.Errorf("insert entry: %w: %v", models.ErrPersistence, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, e *models.LedgerEntry) error {
	preds, actuals, err := marshalArrays(e)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE predictions
		 SET predictions = $3, actuals = $4, submitted_at = $5, updated_at = $6
		 WHERE user_id = $1 AND date = $2`,
		e.UserID, e.Date, preds, actuals, e.SubmittedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update entry: %w: %v", models.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entry %s/%s: %w", e.UserID, e.Date, models.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID, date string) (*models.LedgerEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, display_name, date, predictions, actuals, submitted_at, created_at, updated_at
		 FROM predictions WHERE user_id = $1 AND date = $2`, userID, date)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("entry %s/%s: %w", userID, date, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListByDate(ctx context.Context, date string) ([]*models.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, display_name, date, predictions, actuals, submitted_at, created_at, updated_at
		 FROM predictions WHERE date = $1 ORDER BY submitted_at NULLS LAST`, date)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []*models.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ensure(ctx context.Context, userID, displayName string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (user_id, display_name)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name`,
		userID, displayName)
	if err != nil {
		return fmt.Errorf("ensure user: %w: %v", models.ErrPersistence, err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*models.UserScore, error) {
	var u models.UserScore
	var last *string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, display_name, cumulative_points, last_tallied_date
		 FROM users WHERE user_id = $1`, userID).
		Scan(&u.UserID, &u.DisplayName, &u.CumulativePoints, &last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if last != nil {
		u.LastTalliedDate = *last
	}
	return &u, nil
}

// ApplyTally performs the single atomic conditional increment. The guard on
// last_tallied_date makes a second run for the same date a no-op even when
// scheduler instances race.
func (s *PostgresStore) ApplyTally(ctx context.Context, userID, date string, points int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users
		 SET cumulative_points = cumulative_points + $3, last_tallied_date = $2
		 WHERE user_id = $1 AND (last_tallied_date IS NULL OR last_tallied_date < $2)`,
		userID, date, points)
	if err != nil {
		return false, fmt.Errorf("apply tally: %w: %v", models.ErrPersistence, err)
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	var preds, actuals []byte
	var submitted *time.Time
	if err := row.Scan(&e.ID, &e.UserID, &e.DisplayName, &e.Date, &preds, &actuals, &submitted, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.SubmittedAt = submitted
	if err := json.Unmarshal(preds, &e.Predictions); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	if err := json.Unmarshal(actuals, &e.Actuals); err != nil {
		return nil, fmt.Errorf("decode actuals: %w", err)
	}
	normalizeEntry(&e)
	return &e, nil
}

func marshalArrays(e *models.LedgerEntry) ([]byte, []byte, error) {
	preds, err := json.Marshal(e.Predictions)
	if err != nil {
		return nil, nil, fmt.Errorf("encode predictions: %w", err)
	}
	actuals, err := json.Marshal(e.Actuals)
	if err != nil {
		return nil, nil, fmt.Errorf("encode actuals: %w", err)
	}
	return preds, actuals, nil
}

// normalizeEntry pads short arrays back to the 24-slot invariant in case a
// legacy row was written with fewer.
func normalizeEntry(e *models.LedgerEntry) {
	for len(e.Predictions) < models.HoursPerDay {
		e.Predictions = append(e.Predictions, (*decimal.Decimal)(nil))
	}
	for len(e.Actuals) < models.HoursPerDay {
		e.Actuals = append(e.Actuals, models.ActualSlot{State: models.SlotPending})
	}
}

// Interface guards.
var (
	_ repository.LedgerStore = (*PostgresStore)(nil)
	_ repository.UserStore   = (*PostgresStore)(nil)
)
