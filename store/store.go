package store

import (
	"database/sql"
	"errors"

	"github.com/pocketbase/pocketbase/core"

	"venuepass/models"
	"venuepass/services"
)

// Store backs every service interface with PocketBase collections. The
// write-once and CAS guarantees live here, in raw SQL and unique indexes,
// so the services stay oblivious to the storage engine.
type Store struct {
	app core.App
}

var (
	_ services.TicketStore    = (*Store)(nil)
	_ services.CheckinStore   = (*Store)(nil)
	_ services.GuestListStore = (*Store)(nil)
	_ services.POSStore       = (*Store)(nil)
	_ services.RuleStore      = (*Store)(nil)
)

func New(app core.App) *Store {
	return &Store{app: app}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func eventFromRecord(r *core.Record) models.Event {
	return models.Event{
		ID:      r.Id,
		VenueID: r.GetString("venue_id"),
		Name:    r.GetString("name"),
		StartAt: r.GetDateTime("start_at").Time(),
		EndAt:   r.GetDateTime("end_at").Time(),
		Status:  r.GetString("status"),
	}
}

func tierFromRecord(r *core.Record) models.TicketTier {
	return models.TicketTier{
		ID:         r.Id,
		EventID:    r.GetString("event_id"),
		Name:       r.GetString("name"),
		Price:      int64(r.GetInt("price")),
		Quantity:   r.GetInt("quantity"),
		Sold:       r.GetInt("sold"),
		SalesStart: r.GetDateTime("sales_start").Time(),
		SalesEnd:   r.GetDateTime("sales_end").Time(),
	}
}

func ticketFromRecord(r *core.Record) models.Ticket {
	return models.Ticket{
		ID:          r.Id,
		EventID:     r.GetString("event_id"),
		TierID:      r.GetString("tier_id"),
		OwnerID:     r.GetString("owner_id"),
		QRToken:     r.GetString("qr_token"),
		Status:      r.GetString("status"),
		PurchasedAt: r.GetDateTime("purchased_at").Time(),
	}
}

func guestFromRecord(r *core.Record) models.GuestListEntry {
	return models.GuestListEntry{
		ID:           r.Id,
		VenueID:      r.GetString("venue_id"),
		EventID:      r.GetString("event_id"),
		UserID:       r.GetString("user_id"),
		GuestName:    r.GetString("guest_name"),
		GuestContact: r.GetString("guest_contact"),
		PlusOnes:     r.GetInt("plus_ones"),
		Status:       r.GetString("status"),
		AddedBy:      r.GetString("added_by"),
		CreatedAt:    r.GetDateTime("created").Time(),
	}
}

func checkinFromRecord(r *core.Record) models.CheckInRecord {
	return models.CheckInRecord{
		ID:           r.Id,
		VenueID:      r.GetString("venue_id"),
		EventID:      r.GetString("event_id"),
		TicketID:     r.GetString("ticket_id"),
		GuestEntryID: r.GetString("guest_entry_id"),
		Method:       r.GetString("method"),
		StaffID:      r.GetString("staff_id"),
		CheckedInAt:  r.GetDateTime("checked_in_at").Time(),
	}
}

func ruleFromRecord(r *core.Record) models.SpendRule {
	return models.SpendRule{
		ID:          r.Id,
		VenueID:     r.GetString("venue_id"),
		Threshold:   int64(r.GetInt("threshold")),
		WindowDays:  r.GetInt("window_days"),
		LiveStart:   r.GetString("live_start"),
		LiveEnd:     r.GetString("live_end"),
		Tier:        r.GetString("tier"),
		AccessLevel: r.GetString("access_level"),
		Active:      r.GetBool("active"),
	}
}

func grantFromRecord(r *core.Record) models.AccessGrant {
	return models.AccessGrant{
		ID:         r.Id,
		UserID:     r.GetString("user_id"),
		VenueID:    r.GetString("venue_id"),
		Tier:       r.GetString("tier"),
		RuleID:     r.GetString("rule_id"),
		UnlockedAt: r.GetDateTime("unlocked_at").Time(),
	}
}
