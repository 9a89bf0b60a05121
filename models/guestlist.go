package models

import (
	"time"
)

const (
	GuestStatusPending   = "pending"
	GuestStatusConfirmed = "confirmed"
	GuestStatusCheckedIn = "checked_in"
	GuestStatusNoShow    = "no_show"
	GuestStatusRemoved   = "removed"
)

// GuestListEntry identifies a guest either by a registered user id or by
// free-text name/contact added at the door.
type GuestListEntry struct {
	ID           string    `json:"id"`
	VenueID      string    `json:"venue_id"`
	EventID      string    `json:"event_id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	GuestName    string    `json:"guest_name,omitempty"`
	GuestContact string    `json:"guest_contact,omitempty"`
	PlusOnes     int       `json:"plus_ones"`
	Status       string    `json:"status"`
	AddedBy      string    `json:"added_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// Admittable reports whether the entry can still be checked in.
func (g GuestListEntry) Admittable() bool {
	return g.Status == GuestStatusPending || g.Status == GuestStatusConfirmed
}

// Removable: admin removal is only allowed from pre-check-in states.
func (g GuestListEntry) Removable() bool {
	return g.Status == GuestStatusPending || g.Status == GuestStatusConfirmed
}
