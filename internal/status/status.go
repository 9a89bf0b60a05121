package status

import (
	"errors"
	"fmt"
	"time"
)

// Capacity errors. Expected, user-facing, never retried automatically.
var (
	ErrSoldOut      = errors.New("inventory: tier sold out")
	ErrWindowClosed = errors.New("inventory: sales window closed")
)

// State-conflict errors. Expected, surfaced with the conflicting state's
// context, never silently swallowed.
var (
	ErrNotOwner         = errors.New("ticket: not the current owner")
	ErrInvalidState     = errors.New("ticket: invalid state for operation")
	ErrAlreadyRedeemed  = errors.New("checkin: ticket already redeemed")
	ErrAlreadyCheckedIn = errors.New("checkin: guest already checked in")
	ErrEntryRemoved     = errors.New("guestlist: entry removed")
	ErrWrongVenue       = errors.New("checkin: ticket belongs to another venue")
	ErrEventNotLive     = errors.New("checkin: event is not live")
)

// Integrity errors. Logged and rejected.
var (
	ErrTokenNotFound       = errors.New("checkin: unknown token")
	ErrTicketNotFound      = errors.New("ticket: not found")
	ErrTierNotFound        = errors.New("inventory: tier not found")
	ErrEventNotFound       = errors.New("event: not found")
	ErrEntryNotFound       = errors.New("guestlist: entry not found")
	ErrReservationNotFound = errors.New("inventory: reservation not found or expired")
	ErrMalformedPayload    = errors.New("pos: malformed provider payload")
	ErrRuleNotFound        = errors.New("rules: rule not found")
)

// ConflictDetail carries the winning check-in's context so a losing scanner
// can show "already checked in at 22:14 by staff X" instead of a bare error.
type ConflictDetail struct {
	Err         error
	CheckedInAt time.Time
	StaffID     string
}

func (c *ConflictDetail) Error() string {
	return fmt.Sprintf("%v (checked in at %s by %s)", c.Err, c.CheckedInAt.Format("15:04"), c.StaffID)
}

func (c *ConflictDetail) Unwrap() error {
	return c.Err
}

// Transaction is the normalized form a POS provider client pushes over its
// notification channel. Amount is already converted to minor currency units.
type Transaction struct {
	ProviderTxnID string
	VenueID       string
	CardToken     string
	Amount        int64
	Currency      string
	OccurredAt    time.Time
}
