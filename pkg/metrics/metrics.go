package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxEventsCleaned     prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec

	// Domain metrics
	IdentifierCollisions *prometheus.CounterVec
	IdentifierExhausted  *prometheus.CounterVec
	PublicDisclosures    prometheus.Counter
	PublicLookupMisses   prometheus.Counter
	FollowUpsCreated     prometheus.Counter
	LoginAttempts        *prometheus.CounterVec
	ImportedRows         *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them on reg.
// A nil reg registers on the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_processed_total",
			Help:      "Total number of successfully published outbox events",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_failed_total",
			Help:      "Total number of outbox events that exhausted their retries",
		}),
		OutboxEventsCleaned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_cleaned_total",
			Help:      "Total number of processed outbox events removed by cleanup",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "processing_duration_seconds",
			Help:      "Time spent processing one outbox batch",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "retry_attempts_total",
			Help:      "Total number of publish retries for outbox events",
		}, []string{"event_type"}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),

		IdentifierCollisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identifier_collisions_total",
			Help:      "Generated identifiers rejected by a uniqueness constraint",
		}, []string{"kind"}),
		IdentifierExhausted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identifier_exhausted_total",
			Help:      "Identifier assignments that ran out of attempts",
		}, []string{"kind"}),
		PublicDisclosures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "public_disclosures_total",
			Help:      "Successful public token resolutions",
		}),
		PublicLookupMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "public_lookup_misses_total",
			Help:      "Public token lookups that matched nothing",
		}),
		FollowUpsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "followups_created_total",
			Help:      "Follow-ups created",
		}),
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		}, []string{"status"}),
		ImportedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_rows_total",
			Help:      "CSV import rows by outcome",
		}, []string{"outcome"}),
	}
}

// The helpers below accept a nil receiver so callers can run without metrics.

func (m *Metrics) IdentifierCollision(kind string) {
	if m != nil {
		m.IdentifierCollisions.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IdentifierExhaustion(kind string) {
	if m != nil {
		m.IdentifierExhausted.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Disclosed() {
	if m != nil {
		m.PublicDisclosures.Inc()
	}
}

func (m *Metrics) LookupMissed() {
	if m != nil {
		m.PublicLookupMisses.Inc()
	}
}

func (m *Metrics) FollowUpCreated() {
	if m != nil {
		m.FollowUpsCreated.Inc()
	}
}

func (m *Metrics) Login(status string) {
	if m != nil {
		m.LoginAttempts.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) ImportRow(outcome string) {
	if m != nil {
		m.ImportedRows.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) DatabaseOp(operation, status string) {
	if m != nil {
		m.DatabaseOperations.WithLabelValues(operation, status).Inc()
	}
}
