package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"HourCast/internal/domain/models"
	"HourCast/internal/repository"
	applogger "HourCast/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string)              {}
func (nopMetrics) RecordTally(string)              {}
func (nopMetrics) RecordPoints(int)                {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLatency(string, float64)   {}

type nopEvents struct{}

func (nopEvents) PublishMessage(context.Context, string, interface{}) error { return nil }
func (nopEvents) Close() error                                              { return nil }

type nopArchive struct{}

func (nopArchive) Append(context.Context, []models.HourClose) error { return nil }
func (nopArchive) Closes(context.Context, string) ([]models.HourClose, error) {
	return nil, nil
}

type stubFeed struct {
	result *models.HourlyActuals
	err    error
}

func (f *stubFeed) FetchHourlyActuals(_ context.Context, date string, now time.Time) (*models.HourlyActuals, error) {
	if f.err != nil {
		res := models.NewHourlyActuals(date, models.SlotError)
		return res, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return models.NewHourlyActuals(date, models.SlotPending), nil
}

func testLogger() *applogger.Logger {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		panic(err)
	}
	return l
}

func testRefresher(store *repository.MemoryStore, feed *stubFeed) *ActualsRefresher {
	return NewActualsRefresher(feed, store, nopArchive{}, nopEvents{}, nopMetrics{}, testLogger(), time.Hour, 2, "actuals.refreshed")
}

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
