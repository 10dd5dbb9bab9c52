package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFallbackSeparatesReasons(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry(), Config{ServiceName: "stats", Environment: "test"})

	m.RecordFallback(ReaderSnapshot, FallbackNotConfigured)
	m.RecordFallback(ReaderSnapshot, FallbackBackendError)
	m.RecordFallback(ReaderSnapshot, FallbackBackendError)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.readerFallbacks.WithLabelValues(ReaderSnapshot, FallbackNotConfigured)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.readerFallbacks.WithLabelValues(ReaderSnapshot, FallbackBackendError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.readerFallbacks.WithLabelValues(ReaderLive, FallbackBackendError)))
}

func TestRecordAggregationOutcome(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry(), Config{})

	m.RecordAggregation(TriggerCron, nil, 10*time.Millisecond)
	m.RecordAggregation(TriggerHTTP, errors.New("write failed"), time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.aggregationRuns.WithLabelValues(TriggerCron, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aggregationRuns.WithLabelValues(TriggerHTTP, "failure")))
}

func TestRecordEventDefaultsUnknownType(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry(), Config{})

	m.RecordEvent("", OutcomeRejected)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsRecorded.WithLabelValues("unknown", OutcomeRejected)))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordEvent("chat", OutcomeRecorded)
		m.RecordFallback(ReaderLive, FallbackNoRow)
		m.RecordAggregation(TriggerCron, nil, time.Second)
		m.RecordAggregationStepFailure("chat_count")
		m.RecordJournal("replayed")
		m.RecordJournalDiscarded(2)
		m.RecordRateLimit(false)
	})
}

func TestRecordJournalDiscardedAddsCount(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry(), Config{})
	m.RecordJournalDiscarded(3)
	m.RecordJournalDiscarded(0)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.journalItems.WithLabelValues("discarded")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New(Config{ServiceName: "stats"})
	m.RecordRateLimit(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `stats_rate_limit_decisions_total{decision="denied",env="unknown",service="stats"} 1`)
}
