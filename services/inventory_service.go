package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"venuepass/config"
	"venuepass/internal/status"
	"venuepass/models"
	"venuepass/monitoring"
	"venuepass/utils"
)

// Redis key layout:
//
//	tier:{tierID}        hash: quantity, sold, held, sales_start, sales_end
//	resv:{resvID}        hash: tier_id, qty, expires_at
//	resv:index:{tierID}  zset: resvID scored by expiry
//	tiers:active         set of tier ids the sweeper watches
//
// All counter mutations go through Lua so concurrent reservations can never
// collectively push sold+held past quantity.

const reserveScript = `
local quantity = tonumber(redis.call('HGET', KEYS[1], 'quantity'))
if not quantity then
  return {'tier_not_found'}
end
local start = tonumber(redis.call('HGET', KEYS[1], 'sales_start')) or 0
local stop = tonumber(redis.call('HGET', KEYS[1], 'sales_end')) or 0
local now = tonumber(ARGV[2])
if (start > 0 and now < start) or (stop > 0 and now > stop) then
  return {'window_closed'}
end
local sold = tonumber(redis.call('HGET', KEYS[1], 'sold')) or 0
local held = tonumber(redis.call('HGET', KEYS[1], 'held')) or 0
local qty = tonumber(ARGV[1])
if sold + held + qty > quantity then
  return {'sold_out'}
end
redis.call('HINCRBY', KEYS[1], 'held', qty)
redis.call('HSET', KEYS[2], 'tier_id', ARGV[4], 'qty', qty, 'expires_at', ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[5])
return {'ok'}
`

const releaseScript = `
local tier = redis.call('HGET', KEYS[1], 'tier_id')
if not tier then
  return 0
end
local qty = tonumber(redis.call('HGET', KEYS[1], 'qty')) or 0
redis.call('DEL', KEYS[1])
redis.call('HINCRBY', 'tier:' .. tier, 'held', -qty)
redis.call('ZREM', 'resv:index:' .. tier, ARGV[1])
return 1
`

const confirmScript = `
local tier = redis.call('HGET', KEYS[1], 'tier_id')
if not tier then
  return {'not_found'}
end
local expires = tonumber(redis.call('HGET', KEYS[1], 'expires_at')) or 0
if expires > 0 and tonumber(ARGV[2]) > expires then
  return {'expired'}
end
local qty = tonumber(redis.call('HGET', KEYS[1], 'qty')) or 0
redis.call('DEL', KEYS[1])
redis.call('HINCRBY', 'tier:' .. tier, 'held', -qty)
redis.call('HINCRBY', 'tier:' .. tier, 'sold', qty)
redis.call('ZREM', 'resv:index:' .. tier, ARGV[1])
return {'ok', tier, qty}
`

type InventoryService struct {
	Redis  *redis.Client
	Config *config.Config

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewInventoryService(redisClient *redis.Client, cfg *config.Config) *InventoryService {
	return &InventoryService{
		Redis:    redisClient,
		Config:   cfg,
		stopChan: make(chan struct{}),
	}
}

// SyncTier seeds (or refreshes the caps of) a tier's Redis counters from the
// durable record. Sold and held are only seeded when absent so live counters
// are never clobbered.
func (s *InventoryService) SyncTier(ctx context.Context, tier models.TicketTier) error {
	tierKey := fmt.Sprintf("tier:%s", tier.ID)

	pipe := s.Redis.TxPipeline()
	pipe.HSet(ctx, tierKey, map[string]any{
		"quantity":    tier.Quantity,
		"sales_start": tier.SalesStart.Unix(),
		"sales_end":   tier.SalesEnd.Unix(),
	})
	pipe.HSetNX(ctx, tierKey, "sold", tier.Sold)
	pipe.HSetNX(ctx, tierKey, "held", 0)
	pipe.SAdd(ctx, "tiers:active", tier.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sync tier %s: %w", tier.ID, err)
	}
	return nil
}

// Reserve atomically takes qty units from the tier for the duration of the
// reservation TTL. Each call is a fresh logical reservation.
func (s *InventoryService) Reserve(ctx context.Context, tierID string, qty int) (string, error) {
	if qty <= 0 {
		qty = 1
	}

	resvID, err := utils.GenerateCode(10)
	if err != nil {
		return "", err
	}
	resvID = "rsv_" + resvID

	now := time.Now()
	expiresAt := now.Add(s.Config.ReservationTTL)

	keys := []string{
		fmt.Sprintf("tier:%s", tierID),
		fmt.Sprintf("resv:%s", resvID),
		fmt.Sprintf("resv:index:%s", tierID),
	}
	res, err := s.Redis.Eval(ctx, reserveScript, keys,
		qty, now.Unix(), expiresAt.Unix(), tierID, resvID,
	).Result()
	if err != nil {
		return "", fmt.Errorf("reserve script: %w", err)
	}

	outcome := scriptOutcome(res)
	switch outcome {
	case "ok":
		monitoring.TrackReservation(tierID, "reserved")
		return resvID, nil
	case "sold_out":
		monitoring.TrackReservation(tierID, "sold_out")
		return "", status.ErrSoldOut
	case "window_closed":
		monitoring.TrackReservation(tierID, "window_closed")
		return "", status.ErrWindowClosed
	case "tier_not_found":
		return "", fmt.Errorf("reserve: tier %s not seeded", tierID)
	default:
		return "", fmt.Errorf("reserve: unexpected script result %v", res)
	}
}

// Release returns a held reservation to inventory. Safe to call more than
// once; only the first call does anything.
func (s *InventoryService) Release(ctx context.Context, resvID string) error {
	keys := []string{fmt.Sprintf("resv:%s", resvID)}
	n, err := s.Redis.Eval(ctx, releaseScript, keys, resvID).Int64()
	if err != nil {
		return fmt.Errorf("release script: %w", err)
	}
	if n == 1 {
		monitoring.TrackReservation("", "released")
	}
	return nil
}

// Confirm consumes a reservation, moving its quantity from held to sold.
// Returns the tier id and quantity so the caller can persist the sale.
func (s *InventoryService) Confirm(ctx context.Context, resvID string) (string, int, error) {
	keys := []string{fmt.Sprintf("resv:%s", resvID)}
	res, err := s.Redis.Eval(ctx, confirmScript, keys, resvID, time.Now().Unix()).Result()
	if err != nil {
		return "", 0, fmt.Errorf("confirm script: %w", err)
	}

	parts, ok := res.([]interface{})
	if !ok || len(parts) == 0 {
		return "", 0, fmt.Errorf("confirm: unexpected script result %v", res)
	}
	switch parts[0] {
	case "ok":
		if len(parts) < 3 {
			return "", 0, fmt.Errorf("confirm: unexpected script result %v", res)
		}
		tierID, _ := parts[1].(string)
		qty := toInt(parts[2])
		monitoring.TrackReservation(tierID, "confirmed")
		return tierID, qty, nil
	default:
		return "", 0, status.ErrReservationNotFound
	}
}

// ReleaseSold returns units that were confirmed sold but never materialized
// as tickets. Compensates a partial issuance failure so the sold counter
// matches the tickets that actually exist.
func (s *InventoryService) ReleaseSold(ctx context.Context, tierID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	if err := s.Redis.HIncrBy(ctx, fmt.Sprintf("tier:%s", tierID), "sold", int64(-qty)).Err(); err != nil {
		return fmt.Errorf("release sold: %w", err)
	}
	monitoring.TrackReservation(tierID, "sold_released")
	return nil
}

// Snapshot returns a tier's live counters for the admin dashboard.
func (s *InventoryService) Snapshot(ctx context.Context, tierID string) (map[string]int, error) {
	fields, err := s.Redis.HGetAll(ctx, fmt.Sprintf("tier:%s", tierID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("tier %s not seeded", tierID)
	}

	snapshot := make(map[string]int, len(fields))
	for _, field := range []string{"quantity", "sold", "held"} {
		v, _ := strconv.Atoi(fields[field])
		snapshot[field] = v
	}
	return snapshot, nil
}

// RunSweeper releases expired reservations back to inventory. Reservation
// expiry is enforced here rather than with key TTLs so the held counter can
// be decremented in the same atomic step.
func (s *InventoryService) RunSweeper(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	ticker := time.NewTicker(s.Config.ReservationSweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepExpired(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *InventoryService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *InventoryService) sweepExpired(ctx context.Context) {
	tierIDs, err := s.Redis.SMembers(ctx, "tiers:active").Result()
	if err != nil {
		slog.Error("sweep: listing active tiers", "error", err)
		return
	}

	now := strconv.FormatInt(time.Now().Unix(), 10)
	for _, tierID := range tierIDs {
		indexKey := fmt.Sprintf("resv:index:%s", tierID)
		expired, err := s.Redis.ZRangeByScore(ctx, indexKey, &redis.ZRangeBy{
			Min: "-inf",
			Max: now,
		}).Result()
		if err != nil {
			slog.Error("sweep: range expired reservations", "tier_id", tierID, "error", err)
			continue
		}

		for _, resvID := range expired {
			if err := s.Release(ctx, resvID); err != nil {
				slog.Error("sweep: release reservation", "reservation_id", resvID, "error", err)
				continue
			}
			// The reservation hash may already be gone if it was confirmed
			// or released between range and release; ZREM it regardless.
			s.Redis.ZRem(ctx, indexKey, resvID)
			slog.Info("released expired reservation", "reservation_id", resvID, "tier_id", tierID)
		}
	}
}

func scriptOutcome(res interface{}) string {
	parts, ok := res.([]interface{})
	if !ok || len(parts) == 0 {
		return ""
	}
	outcome, _ := parts[0].(string)
	return outcome
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}
