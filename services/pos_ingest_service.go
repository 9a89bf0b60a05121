package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"venuepass/config"
	"venuepass/internal/services/pos"
	"venuepass/internal/status"
	"venuepass/models"
	"venuepass/monitoring"
	"venuepass/utils"
)

// POSStore is the durable side of transaction ingestion. InsertTransaction
// must be write-once on (provider, venue_id, provider_txn_id): a duplicate
// insert reports created=false and changes nothing.
type POSStore interface {
	InsertTransaction(ctx context.Context, t *models.POSTransaction) (created bool, err error)
	// FindUserByCardToken resolves a pseudonymous card token to a registered
	// user id, or "" when no card link exists.
	FindUserByCardToken(ctx context.Context, cardToken string) (string, error)
	GetCursor(ctx context.Context, provider, venueID string) (models.SyncCursor, error)
	AdvanceCursor(ctx context.Context, provider, venueID string, to time.Time) error
	ListVenuesForProvider(ctx context.Context, provider string) ([]string, error)
}

// Evaluator is notified after a matched transaction is durably stored.
type Evaluator interface {
	Evaluate(ctx context.Context, userID, venueID string) error
}

// initialLookback bounds the first sync of a (provider, venue) pair that has
// no cursor yet.
const initialLookback = 24 * time.Hour

type POSIngestService struct {
	store     POSStore
	registry  *pos.Registry
	evaluator Evaluator
	cfg       *config.Config

	// one breaker per provider so a Toast outage does not gate Square syncs.
	// Created lazily so providers registered after construction get one too.
	breakerMu sync.Mutex
	breakers  map[pos.ProviderName]*utils.CircuitBreaker
}

func NewPOSIngestService(store POSStore, registry *pos.Registry, evaluator Evaluator, cfg *config.Config) *POSIngestService {
	return &POSIngestService{
		store:     store,
		registry:  registry,
		evaluator: evaluator,
		cfg:       cfg,
		breakers:  make(map[pos.ProviderName]*utils.CircuitBreaker),
	}
}

func (s *POSIngestService) breakerFor(name pos.ProviderName) *utils.CircuitBreaker {
	s.breakerMu.Lock()
	defer s.breakerMu.Unlock()

	breaker, ok := s.breakers[name]
	if !ok {
		breaker = utils.NewCircuitBreaker(fmt.Sprintf("pos-%s", name))
		s.breakers[name] = breaker
	}
	return breaker
}

// Ingest stores one normalized transaction and, when it resolves to a
// registered user, hands the (user, venue) pair to the rule engine. A
// duplicate delivery is absorbed here: it neither stores nor re-evaluates.
func (s *POSIngestService) Ingest(ctx context.Context, provider pos.ProviderName, venueID string, raw pos.RawTransaction) (bool, error) {
	if raw.ProviderTxnID == "" || raw.CardToken == "" || venueID == "" {
		monitoring.TrackPOSIngest(string(provider), "malformed")
		return false, fmt.Errorf("%w: provider=%s txn=%q venue=%q", status.ErrMalformedPayload, provider, raw.ProviderTxnID, venueID)
	}

	userID, err := s.store.FindUserByCardToken(ctx, raw.CardToken)
	if err != nil {
		return false, fmt.Errorf("ingest: card lookup: %w", err)
	}

	txn := &models.POSTransaction{
		Provider:      string(provider),
		VenueID:       venueID,
		ProviderTxnID: raw.ProviderTxnID,
		CardToken:     raw.CardToken,
		UserID:        userID,
		Amount:        raw.Amount.Shift(2).IntPart(),
		Currency:      raw.Currency,
		OccurredAt:    raw.OccurredAt,
	}

	created, err := s.store.InsertTransaction(ctx, txn)
	if err != nil {
		monitoring.TrackPOSIngest(string(provider), "error")
		return false, fmt.Errorf("ingest: store: %w", err)
	}
	if !created {
		// already ingested via another path (poll vs webhook); nothing to do.
		monitoring.TrackPOSIngest(string(provider), "duplicate")
		return false, nil
	}

	if !txn.Matched() {
		monitoring.TrackPOSIngest(string(provider), "unmatched")
		return true, nil
	}
	monitoring.TrackPOSIngest(string(provider), "matched")

	if err := s.evaluator.Evaluate(ctx, userID, venueID); err != nil {
		// the transaction is durable; evaluation will catch up on the next
		// matched transaction for this pair.
		slog.Error("rule evaluation failed", "provider", provider, "user_id", userID, "venue_id", venueID, "error", err)
	}

	return true, nil
}

// IngestPush absorbs a transaction arriving over a provider's own push
// stream. Amounts on that path are already in minor units.
func (s *POSIngestService) IngestPush(ctx context.Context, provider pos.ProviderName, tran *status.Transaction) error {
	raw := pos.RawTransaction{
		ProviderTxnID: tran.ProviderTxnID,
		CardToken:     tran.CardToken,
		Amount:        minorToDecimal(tran.Amount),
		Currency:      tran.Currency,
		OccurredAt:    tran.OccurredAt,
	}

	_, err := s.Ingest(ctx, provider, tran.VenueID, raw)
	return err
}

// Sync polls one provider for every venue wired to it. The cursor for a
// venue advances only after every transaction in the batch is durably
// stored, so a partial failure re-fetches the whole batch and dedup absorbs
// the overlap.
func (s *POSIngestService) Sync(ctx context.Context, name pos.ProviderName) error {
	provider, err := s.registry.Get(name)
	if err != nil {
		return err
	}

	venues, err := s.store.ListVenuesForProvider(ctx, string(name))
	if err != nil {
		return fmt.Errorf("sync %s: list venues: %w", name, err)
	}

	started := time.Now()
	defer func() { monitoring.TrackPOSSync(string(name), time.Since(started)) }()

	var firstErr error
	for _, venueID := range venues {
		if err := s.syncVenue(ctx, provider, venueID); err != nil {
			slog.Error("POS sync failed", "provider", name, "venue_id", venueID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (s *POSIngestService) syncVenue(ctx context.Context, provider pos.Provider, venueID string) error {
	name := provider.Name()

	cursor, err := s.store.GetCursor(ctx, string(name), venueID)
	if err != nil {
		return fmt.Errorf("cursor: %w", err)
	}
	since := cursor.LastSyncAt
	if since.IsZero() {
		since = time.Now().Add(-initialLookback)
	}

	// the next cursor is the sync start, not "now after storing", so
	// transactions recorded mid-sync are picked up next round.
	syncStart := time.Now()

	txns, err := s.fetchWithRetry(ctx, provider, venueID, since)
	if err != nil {
		return err
	}

	stored := 0
	skipped := 0
	for _, raw := range txns {
		if _, err := s.Ingest(ctx, name, venueID, raw); err != nil {
			if errors.Is(err, status.ErrMalformedPayload) {
				// one bad record must not wedge the batch.
				slog.Warn("skipping malformed POS transaction", "provider", name, "venue_id", venueID, "error", err)
				skipped++
				continue
			}
			return fmt.Errorf("store batch: %w", err)
		}
		stored++
	}

	if err := s.store.AdvanceCursor(ctx, string(name), venueID, syncStart); err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}

	slog.Info("POS sync complete", "provider", name, "venue_id", venueID, "fetched", len(txns), "stored", stored, "skipped", skipped)
	return nil
}

func (s *POSIngestService) fetchWithRetry(ctx context.Context, provider pos.Provider, venueID string, since time.Time) ([]pos.RawTransaction, error) {
	breaker := s.breakerFor(provider.Name())

	var txns []pos.RawTransaction
	backOff := time.Second
	for attempt := 0; ; attempt++ {
		err := breaker.Do(ctx, func(ctx context.Context) error {
			fctx, cancel := context.WithTimeout(ctx, s.cfg.POSFetchTimeout)
			defer cancel()

			var ferr error
			txns, ferr = provider.FetchTransactions(fctx, venueID, since)
			return ferr
		})
		if err == nil {
			return txns, nil
		}
		if attempt >= s.cfg.POSMaxRetries {
			return nil, fmt.Errorf("fetch: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backOff):
			backOff *= 2
		}
	}
}

// Run drives the service: a poll ticker per the configured interval, plus a
// shared channel draining every provider's push stream. Blocks until ctx is
// cancelled.
func (s *POSIngestService) Run(ctx context.Context) {
	pushCh := make(chan *status.Transaction, 64)
	for _, name := range s.registry.Names() {
		provider, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		provider.SetTransactionChannel(pushCh)
	}

	ticker := time.NewTicker(s.cfg.POSPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case tran := <-pushCh:
			// push deliveries carry the provider in the venue-channel naming,
			// but only Toast pushes today.
			if err := s.IngestPush(ctx, pos.ProviderToast, tran); err != nil {
				slog.Error("push ingest failed", "txn", tran.ProviderTxnID, "error", err)
			}

		case <-ticker.C:
			for _, name := range s.registry.Names() {
				if err := s.Sync(ctx, name); err != nil {
					slog.Error("scheduled POS sync failed", "provider", name, "error", err)
				}
			}
		}
	}
}

func minorToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
