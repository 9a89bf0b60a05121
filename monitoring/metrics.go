package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_reservations_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"tier_id", "outcome"},
	)

	checkins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_total",
			Help: "Check-in attempts by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	posIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_transactions_ingested_total",
			Help: "POS transactions ingested by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	posSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pos_sync_duration_seconds",
			Help:    "Duration of provider sync rounds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"provider"},
	)

	accessGrants = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_grants_total",
			Help: "Access grants created by the spend rule engine",
		},
		[]string{"venue_id"},
	)

	ruleEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_evaluations_total",
			Help: "Spend rule evaluation runs by outcome",
		},
		[]string{"outcome"},
	)
)

func TrackReservation(tierID, outcome string) {
	reservations.WithLabelValues(tierID, outcome).Inc()
}

func TrackCheckIn(method, outcome string) {
	checkins.WithLabelValues(method, outcome).Inc()
}

func TrackPOSIngest(provider, outcome string) {
	posIngested.WithLabelValues(provider, outcome).Inc()
}

func TrackPOSSync(provider string, d time.Duration) {
	posSyncDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func TrackGrant(venueID string) {
	accessGrants.WithLabelValues(venueID).Inc()
}

func TrackRuleEvaluation(outcome string) {
	ruleEvaluations.WithLabelValues(outcome).Inc()
}
