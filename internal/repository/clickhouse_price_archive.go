package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"HourCast/internal/domain/models"
	"HourCast/internal/domain/repository"
)

// ClickHousePriceArchive keeps every reconciled hourly close for history and
// audit queries. The archive is append-only; the document store remains the
// scoring source of truth.
type ClickHousePriceArchive struct {
	db    *sql.DB
	table string
}

// NewClickHousePriceArchive creates the ClickHouse-backed archive.
func NewClickHousePriceArchive(db *sql.DB, table string) repository.PriceArchive {
	return &ClickHousePriceArchive{db: db, table: table}
}

func (a *ClickHousePriceArchive) Append(ctx context.Context, closes []models.HourClose) error {
	if len(closes) == 0 {
		return nil
	}
	values := make([]string, 0, len(closes))
	args := make([]interface{}, 0, len(closes)*3)
	for _, c := range closes {
		if c.Hour < 0 || c.Hour >= models.HoursPerDay {
			continue
		}
		values = append(values, "(?, ?, ?)")
		price, _ := c.Price.Float64()
		args = append(args, c.Date, c.Hour, price)
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (date, hour, price) VALUES %s", a.table, strings.Join(values, ","))
	if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("archive closes: %w", err)
	}
	return nil
}

// NoopPriceArchive is used when ClickHouse is disabled.
type NoopPriceArchive struct{}

func (NoopPriceArchive) Append(context.Context, []models.HourClose) error { return nil }
func (NoopPriceArchive) Closes(context.Context, string) ([]models.HourClose, error) {
	return nil, nil
}

func (a *ClickHousePriceArchive) Closes(ctx context.Context, date string) ([]models.HourClose, error) {
	// ReplacingMergeTree may hold duplicate rows until merge; take the last
	// write per hour.
	q := fmt.Sprintf("SELECT hour, anyLast(price) FROM %s WHERE date = ? GROUP BY hour ORDER BY hour", a.table)
	rows, err := a.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, fmt.Errorf("query closes: %w", err)
	}
	defer rows.Close()

	var out []models.HourClose
	for rows.Next() {
		var h int
		var p float64
		if err := rows.Scan(&h, &p); err != nil {
			return nil, err
		}
		out = append(out, models.HourClose{Date: date, Hour: h, Price: decimal.NewFromFloat(p)})
	}
	return out, rows.Err()
}
