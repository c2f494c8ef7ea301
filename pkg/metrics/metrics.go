package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// SOS lifecycle
	SOSCreated     prometheus.Counter
	SOSAccepted    prometheus.Counter
	SOSResolved    prometheus.Counter
	SOSConflicts   *prometheus.CounterVec
	SOSActiveGauge prometheus.Gauge

	// Proximity matcher
	MatcherLatency    prometheus.Histogram
	MatcherCandidates prometheus.Histogram

	// Verification moderation
	VerificationDecisions *prometheus.CounterVec

	// Admin notifications
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter
	NotificationRetries *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		SOSCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sos_created_total",
			Help:      "Total number of SOS requests created",
		}),
		SOSAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sos_accepted_total",
			Help:      "Total number of SOS requests accepted by a medic",
		}),
		SOSResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sos_resolved_total",
			Help:      "Total number of SOS requests marked resolved",
		}),
		SOSConflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sos_conflicts_total",
			Help:      "Total number of SOS transitions lost to a concurrent writer",
		}, []string{"operation"}),
		SOSActiveGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sos_active",
			Help:      "Current number of SOS requests in pending or accepted state",
		}),
		MatcherLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "matcher_duration_seconds",
			Help:      "Time spent computing eligible medics for a request",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		MatcherCandidates: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "matcher_candidates",
			Help:      "Number of verified medics evaluated per match",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		VerificationDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "verification_decisions_total",
			Help:      "Total number of admin verification decisions",
		}, []string{"decision"}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_sent_total",
			Help:      "Total number of admin notifications delivered",
		}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_failed_total",
			Help:      "Total number of admin notifications that exhausted retries",
		}),
		NotificationRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notification_retry_attempts_total",
			Help:      "Total number of notification retry attempts",
		}, []string{"channel"}),
	}
}
