package services

import (
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go"

	"venuepass/models"
)

// Notifier publishes domain events for the presentation layer. Transport is
// PubNub channels: "user-{id}" for personal notifications, "venue-{id}" for
// door/staff dashboards. A nil Notifier drops everything, which keeps the
// services testable without a PubNub account.
type Notifier struct {
	pn *pubnub.PubNub
}

func NewNotifier(pn *pubnub.PubNub) *Notifier {
	return &Notifier{pn: pn}
}

func (n *Notifier) TicketIssued(ticket models.Ticket) {
	n.publish(fmt.Sprintf("user-%s", ticket.OwnerID), map[string]any{
		"type":      "ticket_issued",
		"ticket_id": ticket.ID,
		"event_id":  ticket.EventID,
	})
}

func (n *Notifier) TicketRedeemed(venueID string, rec models.CheckInRecord) {
	n.publish(fmt.Sprintf("venue-%s", venueID), map[string]any{
		"type":          "ticket_redeemed",
		"ticket_id":     rec.TicketID,
		"checked_in_at": rec.CheckedInAt,
		"staff_id":      rec.StaffID,
	})
}

func (n *Notifier) GuestCheckedIn(venueID string, rec models.CheckInRecord) {
	n.publish(fmt.Sprintf("venue-%s", venueID), map[string]any{
		"type":           "guest_checked_in",
		"guest_entry_id": rec.GuestEntryID,
		"checked_in_at":  rec.CheckedInAt,
		"staff_id":       rec.StaffID,
	})
}

func (n *Notifier) TierUnlocked(grant models.AccessGrant) {
	n.publish(fmt.Sprintf("user-%s", grant.UserID), map[string]any{
		"type":     "tier_unlocked",
		"venue_id": grant.VenueID,
		"tier":     grant.Tier,
		"rule_id":  grant.RuleID,
	})
}

func (n *Notifier) publish(channel string, message map[string]any) {
	if n == nil || n.pn == nil {
		return
	}

	_, _, err := n.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		slog.Error("pubnub publish failed", "channel", channel, "error", err)
	}
}
