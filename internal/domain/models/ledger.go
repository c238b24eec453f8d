package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoursPerDay is the fixed number of UTC hour buckets per calendar day.
const HoursPerDay = 24

// SlotState describes what is known about one hour bucket's actual price.
type SlotState string

const (
	// SlotPending means the hour has not fully closed yet.
	SlotPending SlotState = "pending"
	// SlotPriced means a closing price was reconciled for the hour.
	SlotPriced SlotState = "priced"
	// SlotError means the upstream fetch failed; never scored as zero deviation.
	SlotError SlotState = "error"
)

// ActualSlot is one hour bucket's observed closing price, or the reason it is
// absent. Price is meaningful only when State == SlotPriced.
type ActualSlot struct {
	State SlotState       `json:"state"`
	Price decimal.Decimal `json:"price,omitempty"`
}

// HourlyActuals is the price feed adapter output: always exactly 24 slots
// aligned to UTC hour buckets of Date.
type HourlyActuals struct {
	Date      string       `json:"date"`
	Slots     []ActualSlot `json:"slots"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// NewHourlyActuals returns a 24-slot result with every slot in state s.
func NewHourlyActuals(date string, s SlotState) *HourlyActuals {
	r := &HourlyActuals{Date: date, Slots: make([]ActualSlot, HoursPerDay)}
	for i := range r.Slots {
		r.Slots[i].State = s
	}
	return r
}

// LedgerEntry holds one user's full day of hourly predictions plus the
// reconciled actuals. Points are always derived, never stored authoritatively.
type LedgerEntry struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	DisplayName string             `json:"display_name"`
	Date        string             `json:"date"` // YYYY-MM-DD, UTC
	Predictions []*decimal.Decimal `json:"predictions"` // len 24, nil = unset
	Actuals     []ActualSlot       `json:"actuals"`     // len 24
	SubmittedAt *time.Time         `json:"submitted_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewLedgerEntry creates an empty draft entry for (userID, date) with 24
// unset predictions and 24 pending actuals.
func NewLedgerEntry(id, userID, displayName, date string, now time.Time) *LedgerEntry {
	e := &LedgerEntry{
		ID:          id,
		UserID:      userID,
		DisplayName: displayName,
		Date:        date,
		Predictions: make([]*decimal.Decimal, HoursPerDay),
		Actuals:     make([]ActualSlot, HoursPerDay),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i := range e.Actuals {
		e.Actuals[i].State = SlotPending
	}
	return e
}

// Submitted reports whether the entry has been finalized.
func (e *LedgerEntry) Submitted() bool { return e.SubmittedAt != nil }

// Clone returns a deep copy so callers can mutate a new version without
// aliasing the stored one.
func (e *LedgerEntry) Clone() *LedgerEntry {
	c := *e
	c.Predictions = make([]*decimal.Decimal, len(e.Predictions))
	for i, p := range e.Predictions {
		if p != nil {
			v := *p
			c.Predictions[i] = &v
		}
	}
	c.Actuals = make([]ActualSlot, len(e.Actuals))
	copy(c.Actuals, e.Actuals)
	if e.SubmittedAt != nil {
		t := *e.SubmittedAt
		c.SubmittedAt = &t
	}
	return &c
}

// MergeActuals overlays fresh feed output onto the entry's actuals.
// Once an hour is priced it never regresses to pending or error, but a
// corrected numeric value does replace the old one.
func (e *LedgerEntry) MergeActuals(fresh []ActualSlot) {
	for i := range e.Actuals {
		if i >= len(fresh) {
			break
		}
		switch fresh[i].State {
		case SlotPriced:
			e.Actuals[i] = fresh[i]
		case SlotError:
			if e.Actuals[i].State != SlotPriced {
				e.Actuals[i] = fresh[i]
			}
		case SlotPending:
			// known prices do not regress to unknown
		}
	}
}

// UserScore is one user's cumulative standing. CumulativePoints only grows,
// and only once per tallied date.
type UserScore struct {
	UserID           string `json:"user_id"`
	DisplayName      string `json:"display_name"`
	CumulativePoints int64  `json:"cumulative_points"`
	LastTalliedDate  string `json:"last_tallied_date,omitempty"`
}

// LeaderboardRow is one ranked line of the daily leaderboard.
type LeaderboardRow struct {
	Rank        int        `json:"rank"`
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Points      int        `json:"points"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// HourClose is one archived hourly closing price.
type HourClose struct {
	Date  string          `json:"date"`
	Hour  int             `json:"hour"`
	Price decimal.Decimal `json:"price"`
}

// Tick is a live trade observation from the market stream.
type Tick struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
}

// Quote is the latest observed price served to clients.
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	At     time.Time `json:"at"`
}
