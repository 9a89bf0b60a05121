package store

import (
	"context"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"venuepass/internal/status"
	"venuepass/models"
)

func (s *Store) ListActiveRules(ctx context.Context, venueID string) ([]models.SpendRule, error) {
	records, err := s.app.FindRecordsByFilter(
		"spend_rules",
		"venue_id = {:venueId} && active = true",
		"threshold",
		-1,
		0,
		dbx.Params{"venueId": venueID},
	)
	if err != nil {
		return nil, err
	}

	rules := make([]models.SpendRule, 0, len(records))
	for _, r := range records {
		rules = append(rules, ruleFromRecord(r))
	}
	return rules, nil
}

// QualifyingSpend sums matched transaction amounts for the pair. The
// time-of-day filter compares against the stored UTC timestamp; an
// overnight window (start > end) wraps midnight.
func (s *Store) QualifyingSpend(ctx context.Context, userID, venueID string, since time.Time, liveStart, liveEnd string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM pos_transactions
		WHERE user_id = {:userId} AND venue_id = {:venueId}
	`
	params := dbx.Params{"userId": userID, "venueId": venueID}

	if !since.IsZero() {
		query += ` AND occurred_at >= {:since}`
		params["since"] = since.UTC().Format("2006-01-02 15:04:05.000Z")
	}

	if liveStart != "" && liveEnd != "" {
		if liveStart <= liveEnd {
			query += ` AND strftime('%H:%M', occurred_at) BETWEEN {:liveStart} AND {:liveEnd}`
		} else {
			query += ` AND (strftime('%H:%M', occurred_at) >= {:liveStart} OR strftime('%H:%M', occurred_at) <= {:liveEnd})`
		}
		params["liveStart"] = liveStart
		params["liveEnd"] = liveEnd
	}

	var total int64
	if err := s.app.DB().NewQuery(query).Bind(params).Row(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) HasGrant(ctx context.Context, userID, venueID, tier string) (bool, error) {
	_, err := s.app.FindFirstRecordByFilter(
		"access_grants",
		"user_id = {:userId} && venue_id = {:venueId} && tier = {:tier}",
		dbx.Params{"userId": userID, "venueId": venueID, "tier": tier},
	)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateGrant is write-once on (user_id, venue_id, tier); the unique index
// resolves racing evaluations to a single stored grant.
func (s *Store) CreateGrant(ctx context.Context, g *models.AccessGrant) (bool, error) {
	collection, err := s.app.FindCollectionByNameOrId("access_grants")
	if err != nil {
		return false, err
	}

	record := core.NewRecord(collection)
	record.Set("user_id", g.UserID)
	record.Set("venue_id", g.VenueID)
	record.Set("tier", g.Tier)
	record.Set("rule_id", g.RuleID)
	record.Set("unlocked_at", g.UnlockedAt)

	if err := s.app.Save(record); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	g.ID = record.Id
	return true, nil
}

// ListGrants returns a user's grants, newest first.
func (s *Store) ListGrants(ctx context.Context, userID string) ([]models.AccessGrant, error) {
	records, err := s.app.FindRecordsByFilter(
		"access_grants",
		"user_id = {:userId}",
		"-unlocked_at",
		-1,
		0,
		dbx.Params{"userId": userID},
	)
	if err != nil {
		return nil, err
	}

	grants := make([]models.AccessGrant, 0, len(records))
	for _, r := range records {
		grants = append(grants, grantFromRecord(r))
	}
	return grants, nil
}

// GetRule returns one spend rule by id.
func (s *Store) GetRule(ctx context.Context, id string) (models.SpendRule, error) {
	record, err := s.app.FindRecordById("spend_rules", id)
	if err != nil {
		if isNoRows(err) {
			return models.SpendRule{}, status.ErrRuleNotFound
		}
		return models.SpendRule{}, err
	}
	return ruleFromRecord(record), nil
}

// IsVenueStaff reports whether the user is registered as door staff for the
// venue.
func (s *Store) IsVenueStaff(ctx context.Context, userID, venueID string) (bool, error) {
	_, err := s.app.FindFirstRecordByFilter(
		"venue_staff",
		"user_id = {:userId} && venue_id = {:venueId}",
		dbx.Params{"userId": userID, "venueId": venueID},
	)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
