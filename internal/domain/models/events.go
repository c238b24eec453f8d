package models

import "time"

// TallyCompletedEvent is published after a day's points were added to a
// user's cumulative score exactly once. Cumulative is omitted when the
// post-increment score could not be read back.
type TallyCompletedEvent struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	Date       string    `json:"date"`
	Points     int       `json:"points"`
	Cumulative *int64    `json:"cumulative,omitempty"`
	At         time.Time `json:"at"`
}

// ActualsRefreshedEvent is published after a successful feed reconciliation
// cycle.
type ActualsRefreshedEvent struct {
	EventID string    `json:"event_id"`
	Date    string    `json:"date"`
	Priced  int       `json:"priced"`
	At      time.Time `json:"at"`
}
