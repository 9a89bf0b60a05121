package models

import (
	"time"
)

const (
	EventStatusUpcoming  = "upcoming"
	EventStatusLive      = "live"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
)

type Event struct {
	ID      string    `json:"id"`
	VenueID string    `json:"venue_id"`
	Name    string    `json:"name"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Status  string    `json:"status"` // upcoming, live, completed, cancelled
}

// IsLive reports whether check-ins should be accepted at the given instant.
func (e Event) IsLive(now time.Time) bool {
	if e.Status == EventStatusCancelled || e.Status == EventStatusCompleted {
		return false
	}
	if e.Status == EventStatusLive {
		return true
	}
	return !now.Before(e.StartAt) && now.Before(e.EndAt)
}

// Ended reports whether the event window is fully over. The no-show
// reconciliation pass must never run mid-event.
func (e Event) Ended(now time.Time) bool {
	return e.Status == EventStatusCompleted || e.Status == EventStatusCancelled || now.After(e.EndAt)
}

var eventStatusRank = map[string]int{
	EventStatusUpcoming:  0,
	EventStatusLive:      1,
	EventStatusCompleted: 2,
	EventStatusCancelled: 3,
}

// ValidEventTransition rejects backwards moves (no live -> upcoming).
// Cancelled is reachable from any non-terminal state but never leaves.
func ValidEventTransition(from, to string) bool {
	fromRank, ok := eventStatusRank[from]
	if !ok {
		return false
	}
	toRank, ok := eventStatusRank[to]
	if !ok {
		return false
	}
	if from == EventStatusCompleted || from == EventStatusCancelled {
		return false
	}
	if to == EventStatusCancelled {
		return true
	}
	return toRank > fromRank
}

type TicketTier struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Name       string    `json:"name"`
	Price      int64     `json:"price"` // minor currency units
	Quantity   int       `json:"quantity"`
	Sold       int       `json:"sold"`
	SalesStart time.Time `json:"sales_start"`
	SalesEnd   time.Time `json:"sales_end"`
}
