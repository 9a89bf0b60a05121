package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidEventTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{EventStatusUpcoming, EventStatusLive, true},
		{EventStatusLive, EventStatusCompleted, true},
		{EventStatusUpcoming, EventStatusCompleted, true},
		{EventStatusUpcoming, EventStatusCancelled, true},
		{EventStatusLive, EventStatusCancelled, true},

		// no backwards moves
		{EventStatusLive, EventStatusUpcoming, false},
		{EventStatusCompleted, EventStatusLive, false},

		// terminal states never leave
		{EventStatusCompleted, EventStatusCancelled, false},
		{EventStatusCancelled, EventStatusUpcoming, false},
		{EventStatusCancelled, EventStatusCancelled, false},

		{"bogus", EventStatusLive, false},
		{EventStatusUpcoming, "bogus", false},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, ValidEventTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestEventIsLive(t *testing.T) {
	now := time.Now()
	window := Event{
		Status:  EventStatusUpcoming,
		StartAt: now.Add(-time.Hour),
		EndAt:   now.Add(time.Hour),
	}

	// explicit live status always admits
	assert.True(t, Event{Status: EventStatusLive}.IsLive(now))

	// otherwise the time window decides
	assert.True(t, window.IsLive(now))
	assert.False(t, window.IsLive(now.Add(2*time.Hour)))
	assert.False(t, window.IsLive(now.Add(-2*time.Hour)))

	// terminal states never admit, window or not
	window.Status = EventStatusCompleted
	assert.False(t, window.IsLive(now))
	window.Status = EventStatusCancelled
	assert.False(t, window.IsLive(now))
}

func TestEventEnded(t *testing.T) {
	now := time.Now()

	assert.True(t, Event{Status: EventStatusCompleted, EndAt: now.Add(time.Hour)}.Ended(now))
	assert.True(t, Event{Status: EventStatusCancelled, EndAt: now.Add(time.Hour)}.Ended(now))
	assert.True(t, Event{Status: EventStatusLive, EndAt: now.Add(-time.Minute)}.Ended(now))
	assert.False(t, Event{Status: EventStatusLive, EndAt: now.Add(time.Hour)}.Ended(now))
}

func TestTicketRedeemable(t *testing.T) {
	assert.True(t, Ticket{Status: TicketStatusActive}.Redeemable())

	for _, s := range []string{TicketStatusRedeemed, TicketStatusTransferred, TicketStatusCancelled, TicketStatusRefunded} {
		assert.False(t, Ticket{Status: s}.Redeemable(), s)
		assert.False(t, Ticket{Status: s}.Transferable(), s)
	}
}

func TestCheckInRecordValid(t *testing.T) {
	assert.True(t, CheckInRecord{TicketID: "t1"}.Valid())
	assert.True(t, CheckInRecord{GuestEntryID: "g1"}.Valid())

	// exactly one reference, never both, never neither
	assert.False(t, CheckInRecord{TicketID: "t1", GuestEntryID: "g1"}.Valid())
	assert.False(t, CheckInRecord{}.Valid())
}

func TestGuestListEntryStates(t *testing.T) {
	assert.True(t, GuestListEntry{Status: GuestStatusPending}.Admittable())
	assert.True(t, GuestListEntry{Status: GuestStatusConfirmed}.Admittable())
	assert.False(t, GuestListEntry{Status: GuestStatusCheckedIn}.Admittable())
	assert.False(t, GuestListEntry{Status: GuestStatusRemoved}.Admittable())
	assert.False(t, GuestListEntry{Status: GuestStatusNoShow}.Admittable())

	assert.True(t, GuestListEntry{Status: GuestStatusPending}.Removable())
	assert.False(t, GuestListEntry{Status: GuestStatusCheckedIn}.Removable())
}

func TestSpendRuleWindowStart(t *testing.T) {
	now := time.Now()

	// all-time rule has no lower bound
	assert.True(t, SpendRule{}.WindowStart(now).IsZero())

	got := SpendRule{WindowDays: 90}.WindowStart(now)
	assert.Equal(t, now.AddDate(0, 0, -90), got)
}

func TestSpendRuleHasLiveWindow(t *testing.T) {
	assert.False(t, SpendRule{}.HasLiveWindow())
	assert.False(t, SpendRule{LiveStart: "22:00"}.HasLiveWindow())
	assert.True(t, SpendRule{LiveStart: "22:00", LiveEnd: "03:00"}.HasLiveWindow())
}
