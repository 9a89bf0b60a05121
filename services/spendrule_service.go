package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"venuepass/models"
	"venuepass/monitoring"
)

// RuleStore is the durable side of the rule engine. CreateGrant must be
// write-once on (user_id, venue_id, tier): a concurrent duplicate reports
// created=false, so a tier can only ever be granted once.
type RuleStore interface {
	ListActiveRules(ctx context.Context, venueID string) ([]models.SpendRule, error)
	// QualifyingSpend sums the matched transaction amounts for the pair,
	// bounded below by since (zero means all-time) and, when liveStart and
	// liveEnd are set, to transactions inside that time-of-day window.
	QualifyingSpend(ctx context.Context, userID, venueID string, since time.Time, liveStart, liveEnd string) (int64, error)
	HasGrant(ctx context.Context, userID, venueID, tier string) (bool, error)
	CreateGrant(ctx context.Context, g *models.AccessGrant) (created bool, err error)
}

var _ Evaluator = (*SpendRuleService)(nil)

// SpendRuleService re-derives a user's tier standing from stored
// transactions whenever new spend lands. Grants are monotonic: evaluation
// only ever adds them.
type SpendRuleService struct {
	store    RuleStore
	redis    *redis.Client
	notifier *Notifier
}

func NewSpendRuleService(store RuleStore, redisClient *redis.Client, notifier *Notifier) *SpendRuleService {
	return &SpendRuleService{
		store:    store,
		redis:    redisClient,
		notifier: notifier,
	}
}

// Evaluate checks every active rule of the venue against the user's
// qualifying spend and grants each crossed tier the user does not hold yet.
// Concurrent evaluations of the same pair are serialized best-effort with a
// short Redis lock; the unique grant index is what actually prevents
// duplicates.
func (s *SpendRuleService) Evaluate(ctx context.Context, userID, venueID string) error {
	lockKey := fmt.Sprintf("rules:lock:%s:%s", userID, venueID)
	if s.redis != nil {
		ok, err := s.redis.SetNX(ctx, lockKey, 1, 10*time.Second).Result()
		if err == nil && ok {
			defer s.redis.Del(context.WithoutCancel(ctx), lockKey)
		}
		// lock miss or Redis error: evaluate anyway, CreateGrant is safe.
	}

	rules, err := s.store.ListActiveRules(ctx, venueID)
	if err != nil {
		monitoring.TrackRuleEvaluation("error")
		return fmt.Errorf("evaluate: list rules: %w", err)
	}

	now := time.Now()
	for _, rule := range rules {
		if err := s.evaluateRule(ctx, userID, venueID, rule, now); err != nil {
			monitoring.TrackRuleEvaluation("error")
			return err
		}
	}

	return nil
}

func (s *SpendRuleService) evaluateRule(ctx context.Context, userID, venueID string, rule models.SpendRule, now time.Time) error {
	held, err := s.store.HasGrant(ctx, userID, venueID, rule.Tier)
	if err != nil {
		return fmt.Errorf("evaluate rule %s: has grant: %w", rule.ID, err)
	}
	if held {
		monitoring.TrackRuleEvaluation("already_granted")
		return nil
	}

	var liveStart, liveEnd string
	if rule.HasLiveWindow() {
		liveStart, liveEnd = rule.LiveStart, rule.LiveEnd
	}

	spend, err := s.store.QualifyingSpend(ctx, userID, venueID, rule.WindowStart(now), liveStart, liveEnd)
	if err != nil {
		return fmt.Errorf("evaluate rule %s: qualifying spend: %w", rule.ID, err)
	}
	if spend < rule.Threshold {
		monitoring.TrackRuleEvaluation("below_threshold")
		return nil
	}

	grant := &models.AccessGrant{
		UserID:     userID,
		VenueID:    venueID,
		Tier:       rule.Tier,
		RuleID:     rule.ID,
		UnlockedAt: now,
	}
	created, err := s.store.CreateGrant(ctx, grant)
	if err != nil {
		return fmt.Errorf("evaluate rule %s: create grant: %w", rule.ID, err)
	}
	if !created {
		// another evaluation won the race; same outcome either way.
		monitoring.TrackRuleEvaluation("already_granted")
		return nil
	}

	monitoring.TrackRuleEvaluation("unlocked")
	monitoring.TrackGrant(venueID)
	slog.Info("tier unlocked", "user_id", userID, "venue_id", venueID, "tier", rule.Tier, "rule_id", rule.ID, "spend", spend, "threshold", rule.Threshold)

	if s.notifier != nil {
		s.notifier.TierUnlocked(*grant)
	}

	return nil
}

// GrantManually records an admin-issued grant outside any rule. It shares
// the same write-once semantics as rule-driven grants.
func (s *SpendRuleService) GrantManually(ctx context.Context, userID, venueID, tier string) (bool, error) {
	grant := &models.AccessGrant{
		UserID:     userID,
		VenueID:    venueID,
		Tier:       tier,
		UnlockedAt: time.Now(),
	}
	created, err := s.store.CreateGrant(ctx, grant)
	if err != nil {
		return false, fmt.Errorf("manual grant: %w", err)
	}
	if created {
		monitoring.TrackGrant(venueID)
	}
	return created, nil
}
