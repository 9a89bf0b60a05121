package models

import (
	"time"
)

// SpendRule unlocks a venue-access tier once a user's qualifying spend
// crosses the threshold.
type SpendRule struct {
	ID          string `json:"id"`
	VenueID     string `json:"venue_id"`
	Threshold   int64  `json:"threshold"` // minor currency units
	WindowDays  int    `json:"window_days,omitempty"`
	LiveStart   string `json:"live_start,omitempty"` // "HH:MM", venue-local
	LiveEnd     string `json:"live_end,omitempty"`
	Tier        string `json:"tier"`
	AccessLevel string `json:"access_level"`
	Active      bool   `json:"active"`
}

// WindowStart returns the lower bound for qualifying spend, or the zero time
// for all-time rules.
func (r SpendRule) WindowStart(now time.Time) time.Time {
	if r.WindowDays <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -r.WindowDays)
}

// HasLiveWindow reports whether the rule restricts spend to a time-of-day
// window.
func (r SpendRule) HasLiveWindow() bool {
	return r.LiveStart != "" && r.LiveEnd != ""
}

// AccessGrant is durable. The engine never revokes one, even if the
// triggering rule is later deactivated; only explicit admin action can.
type AccessGrant struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	VenueID    string    `json:"venue_id"`
	Tier       string    `json:"tier"`
	RuleID     string    `json:"rule_id,omitempty"` // empty for manual admin grants
	UnlockedAt time.Time `json:"unlocked_at"`
}
