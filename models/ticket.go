package models

import (
	"time"
)

const (
	TicketStatusActive      = "active"
	TicketStatusTransferred = "transferred"
	TicketStatusRedeemed    = "redeemed"
	TicketStatusCancelled   = "cancelled"
	TicketStatusRefunded    = "refunded"
)

type Ticket struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	TierID      string    `json:"tier_id"`
	OwnerID     string    `json:"owner_id"`
	QRToken     string    `json:"-"` // never serialized in list responses
	Status      string    `json:"status"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// Redeemable reports whether a scan can still consume this ticket.
func (t Ticket) Redeemable() bool {
	return t.Status == TicketStatusActive
}

// Transferable mirrors Redeemable today but is a separate question: a
// cancelled ticket is neither, a redeemed ticket is spent.
func (t Ticket) Transferable() bool {
	return t.Status == TicketStatusActive
}

const (
	CheckInMethodQR        = "qr_code"
	CheckInMethodGuestList = "guest_list"
	CheckInMethodManual    = "manual"
)

// CheckInRecord is append-only. Exactly one of TicketID or GuestEntryID is
// set, never both, never neither.
type CheckInRecord struct {
	ID           string    `json:"id"`
	VenueID      string    `json:"venue_id"`
	EventID      string    `json:"event_id,omitempty"`
	TicketID     string    `json:"ticket_id,omitempty"`
	GuestEntryID string    `json:"guest_entry_id,omitempty"`
	Method       string    `json:"method"`
	StaffID      string    `json:"staff_id"`
	CheckedInAt  time.Time `json:"checked_in_at"`
}

// Valid enforces the exactly-one-reference rule.
func (r CheckInRecord) Valid() bool {
	if r.TicketID != "" && r.GuestEntryID != "" {
		return false
	}
	return r.TicketID != "" || r.GuestEntryID != ""
}
