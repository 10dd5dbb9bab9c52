package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reader names.
const (
	ReaderSnapshot = "snapshot"
	ReaderLive     = "live"
)

// Fallback reasons. Readers answer identically for all of them; only
// observability tells them apart.
const (
	FallbackNotConfigured = "not_configured"
	FallbackBackendError  = "backend_error"
	FallbackNoRow         = "no_row"
)

// Ingestion outcomes.
const (
	OutcomeRecorded    = "recorded"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// Aggregation triggers.
const (
	TriggerHTTP = "http"
	TriggerCron = "cron"
)

// Config carries constant labels.
type Config struct {
	ServiceName string
	Environment string
}

// Metrics holds the service's prometheus instruments.
type Metrics struct {
	registry          *prometheus.Registry
	eventsRecorded    *prometheus.CounterVec
	readerFallbacks   *prometheus.CounterVec
	aggregationRuns   *prometheus.CounterVec
	aggregationSteps  *prometheus.CounterVec
	aggregationTiming *prometheus.HistogramVec
	journalItems      *prometheus.CounterVec
	rateLimit         *prometheus.CounterVec
}

// New builds the instruments on a fresh registry that also exposes Go and process collectors.
func New(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := newMetrics(registry, cfg)
	m.registry = registry
	return m
}

func newMetrics(registerer prometheus.Registerer, cfg Config) *Metrics {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "marketing-stats"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Metrics{
		eventsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stats_events_ingested_total",
			Help:        "Event ingestion attempts by type and outcome.",
			ConstLabels: constLabels,
		}, []string{"type", "outcome"}),
		readerFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stats_reader_fallback_total",
			Help:        "Reader responses served from defaults, by reader and reason.",
			ConstLabels: constLabels,
		}, []string{"reader", "reason"}),
		aggregationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stats_aggregation_runs_total",
			Help:        "Aggregation runs by trigger and outcome.",
			ConstLabels: constLabels,
		}, []string{"trigger", "outcome"}),
		aggregationSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stats_aggregation_step_failures_total",
			Help:        "Aggregation sub-steps that failed and defaulted to zero.",
			ConstLabels: constLabels,
		}, []string{"step"}),
		aggregationTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "stats_aggregation_duration_seconds",
			Help:        "Aggregation latency by trigger.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: constLabels,
		}, []string{"trigger"}),
		journalItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stats_journal_items_total",
			Help:        "Reconciliation journal activity by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		rateLimit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stats_rate_limit_decisions_total",
			Help:        "Ingestion rate limiter decisions.",
			ConstLabels: constLabels,
		}, []string{"decision"}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.eventsRecorded,
			m.readerFallbacks,
			m.aggregationRuns,
			m.aggregationSteps,
			m.aggregationTiming,
			m.journalItems,
			m.rateLimit,
		)
	}
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.eventsRecorded.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) RecordFallback(reader, reason string) {
	if m == nil {
		return
	}
	m.readerFallbacks.WithLabelValues(reader, reason).Inc()
}

func (m *Metrics) RecordAggregation(trigger string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.aggregationRuns.WithLabelValues(trigger, outcome).Inc()
	m.aggregationTiming.WithLabelValues(trigger).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordAggregationStepFailure(step string) {
	if m == nil {
		return
	}
	m.aggregationSteps.WithLabelValues(step).Inc()
}

func (m *Metrics) RecordJournal(outcome string) {
	if m == nil {
		return
	}
	m.journalItems.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordJournalDiscarded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.journalItems.WithLabelValues("discarded").Add(float64(n))
}

func (m *Metrics) RecordRateLimit(allowed bool) {
	if m == nil {
		return
	}
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	m.rateLimit.WithLabelValues(decision).Inc()
}
