package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/internal/infrastructure/monitor"
	"github.com/openhouse/marketing-stats/pkg/httpcontext"
	aggregatorUC "github.com/openhouse/marketing-stats/usecase/aggregator"
	readerUC "github.com/openhouse/marketing-stats/usecase/reader"
	recorderUC "github.com/openhouse/marketing-stats/usecase/recorder"
)

type memoryEvents struct {
	events []domain.Event
	err    error
}

func (m *memoryEvents) Append(_ context.Context, event domain.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

type memorySnapshots struct {
	stats *domain.PlatformStats
	err   error
}

func (m *memorySnapshots) Get(context.Context) (*domain.PlatformStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.stats == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return m.stats, nil
}

func (m *memorySnapshots) Save(_ context.Context, stats *domain.PlatformStats) error {
	if m.err != nil {
		return m.err
	}
	copied := *stats
	m.stats = &copied
	return nil
}

type memoryCounter struct {
	counts map[domain.EventType]int64
	err    error
}

func (m memoryCounter) CountByType(_ context.Context, eventType domain.EventType, _ time.Time) (int64, error) {
	return m.counts[eventType], m.err
}

func (m memoryCounter) CountDistinctActive(context.Context, time.Time) (int64, error) {
	return m.counts[domain.EventSession], m.err
}

func newRequest(method, body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI("/test")
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	return ctx
}

func decodeBody(t *testing.T, ctx *fasthttp.RequestCtx) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &out))
	return out
}

func assertNoCache(t *testing.T, ctx *fasthttp.RequestCtx) {
	t.Helper()
	assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate, max-age=0", string(ctx.Response.Header.Peek("Cache-Control")))
	assert.Equal(t, "no-cache", string(ctx.Response.Header.Peek("Pragma")))
	assert.Equal(t, "0", string(ctx.Response.Header.Peek("Expires")))
	assert.Equal(t, "no-store", string(ctx.Response.Header.Peek("Surrogate-Control")))
}

func TestTrack(t *testing.T) {
	cases := []struct {
		name       string
		events     *memoryEvents
		body       string
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{name: "missing type", events: &memoryEvents{}, body: `{}`, wantStatus: 400, wantCode: "MISSING_EVENT_TYPE", wantError: "missing event type"},
		{name: "empty body", events: &memoryEvents{}, wantStatus: 400, wantCode: "MISSING_EVENT_TYPE", wantError: "missing event type"},
		{name: "bogus type", events: &memoryEvents{}, body: `{"type":"bogus"}`, wantStatus: 400, wantCode: "INVALID_EVENT_TYPE", wantError: "invalid event type"},
		{name: "unknown field", events: &memoryEvents{}, body: `{"type":"chat","user":"x"}`, wantStatus: 400, wantCode: "INVALID_PAYLOAD"},
		{name: "non-string type", events: &memoryEvents{}, body: `{"type":5}`, wantStatus: 400, wantCode: "INVALID_PAYLOAD"},
		{name: "malformed", events: &memoryEvents{}, body: `{"type":`, wantStatus: 400, wantCode: "INVALID_PAYLOAD"},
		{name: "not configured", body: `{"type":"chat"}`, wantStatus: 503, wantCode: "UNAVAILABLE"},
		{name: "write failure", events: &memoryEvents{err: errors.New("row-level security violation")}, body: `{"type":"chat"}`,
			wantStatus: 500, wantCode: "INTERNAL", wantError: "failed to record event: row-level security violation"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var uc *recorderUC.UseCase
			if tc.events != nil {
				uc = recorderUC.New(tc.events, nil, nil, nil)
			} else {
				uc = recorderUC.New(nil, nil, nil, nil)
			}
			h := NewEventHandler(uc, httpcontext.NewAdapter(time.Second), nil)

			ctx := newRequest(http.MethodPost, tc.body)
			h.Track(ctx)

			assert.Equal(t, tc.wantStatus, ctx.Response.StatusCode())
			body := decodeBody(t, ctx)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.wantCode, body["code"])
			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, body["error"])
			}
			if tc.events != nil {
				assert.Empty(t, tc.events.events)
			}
		})
	}
}

func TestTrackSuccess(t *testing.T) {
	events := &memoryEvents{}
	h := NewEventHandler(recorderUC.New(events, nil, nil, nil), nil, nil)

	ctx := newRequest(http.MethodPost, `{"type":"pdf_download","development_id":"dev-1","unit_id":""}`)
	h.Track(ctx)

	require.Equal(t, 200, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"success":true}`, string(ctx.Response.Body()))
	require.Len(t, events.events, 1)
	assert.Equal(t, domain.EventPDFDownload, events.events[0].Type)
	assert.Nil(t, events.events[0].UnitID)
}

func TestTrackProbe(t *testing.T) {
	h := NewEventHandler(nil, nil, nil)

	ctx := newRequest(http.MethodGet, "")
	h.Probe(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.NotEmpty(t, decodeBody(t, ctx)["message"])
}

func TestSnapshotWithoutBackendServesDefault(t *testing.T) {
	h := NewStatsHandler(readerUC.New(nil, nil, nil, nil, 0), nil, nil, nil)

	ctx := newRequest(http.MethodGet, "")
	h.Snapshot(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assertNoCache(t, ctx)
	assert.JSONEq(t,
		`{"active_users":2847,"questions_answered":18493,"pdf_downloads":4221,"engagement_rate":0.94,"updated_at":"2025-01-01T00:00:00Z"}`,
		string(ctx.Response.Body()))
}

func TestSnapshotBackendErrorServesDefault(t *testing.T) {
	snapshots := &memorySnapshots{err: errors.New("connection refused")}
	h := NewStatsHandler(readerUC.New(snapshots, nil, nil, nil, 0), nil, nil, nil)

	ctx := newRequest(http.MethodGet, "")
	h.Snapshot(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assertNoCache(t, ctx)
	assert.Equal(t, float64(2847), decodeBody(t, ctx)["active_users"])
}

func TestLive(t *testing.T) {
	counter := memoryCounter{counts: map[domain.EventType]int64{
		domain.EventSession:     4,
		domain.EventChat:        6,
		domain.EventPDFDownload: 2,
	}}
	h := NewStatsHandler(readerUC.New(nil, counter, nil, nil, 0), nil, nil, nil)

	ctx := newRequest(http.MethodGet, "")
	h.Live(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assertNoCache(t, ctx)
	assert.JSONEq(t, `{"activeUsers":4,"questionsAnswered":6,"pdfDownloads":2,"engagementRate":200}`, string(ctx.Response.Body()))
}

func TestLiveFailureServesZeros(t *testing.T) {
	h := NewStatsHandler(readerUC.New(nil, memoryCounter{err: errors.New("timeout")}, nil, nil, 0), nil, nil, nil)

	ctx := newRequest(http.MethodGet, "")
	h.Live(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assertNoCache(t, ctx)
	assert.JSONEq(t, `{"activeUsers":0,"questionsAnswered":0,"pdfDownloads":0,"engagementRate":0}`, string(ctx.Response.Body()))
}

func TestAggregateThenSnapshot(t *testing.T) {
	counter := memoryCounter{counts: map[domain.EventType]int64{
		domain.EventSession: 10,
		domain.EventChat:    1,
	}}
	snapshots := &memorySnapshots{}
	aggregator := aggregatorUC.New(counter, nil, snapshots, nil, nil, aggregatorUC.Config{})
	h := NewStatsHandler(readerUC.New(snapshots, counter, nil, nil, 0), aggregator, nil, nil).
		WithAggregateTimeout(time.Minute)

	ctx := newRequest(http.MethodPost, "")
	h.Aggregate(ctx)

	require.Equal(t, 200, ctx.Response.StatusCode())
	body := decodeBody(t, ctx)
	assert.Equal(t, true, body["success"])
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(10), stats["active_users"])
	assert.Equal(t, float64(1), stats["questions_answered"])
	assert.Equal(t, 0.1, stats["engagement_rate"])

	ctx = newRequest(http.MethodGet, "")
	h.Snapshot(ctx)
	assert.Equal(t, float64(1), decodeBody(t, ctx)["questions_answered"])
}

func TestAggregateFailures(t *testing.T) {
	h := NewStatsHandler(nil, aggregatorUC.New(nil, nil, nil, nil, nil, aggregatorUC.Config{}), nil, nil)
	ctx := newRequest(http.MethodPost, "")
	h.Aggregate(ctx)
	assert.Equal(t, 503, ctx.Response.StatusCode())

	snapshots := &memorySnapshots{err: errors.New("disk full")}
	h = NewStatsHandler(nil, aggregatorUC.New(memoryCounter{}, nil, snapshots, nil, nil, aggregatorUC.Config{}), nil, nil)
	ctx = newRequest(http.MethodPost, "")
	h.Aggregate(ctx)
	assert.Equal(t, 500, ctx.Response.StatusCode())
	assert.Contains(t, decodeBody(t, ctx)["error"], "disk full")
}

type staticStatus monitor.Status

func (s staticStatus) GetStatus() monitor.Status { return monitor.Status(s) }

func TestHealth(t *testing.T) {
	expected := Expected{Reader: true, Writer: true, Journal: true}

	h := NewHealthHandler(staticStatus{Reader: true, Writer: true, Journal: true}, expected, nil, nil)
	ctx := newRequest(http.MethodGet, "")
	h.Check(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())

	h = NewHealthHandler(staticStatus{Reader: true, Journal: true}, expected, nil, nil)
	ctx = newRequest(http.MethodGet, "")
	h.Check(ctx)
	assert.Equal(t, 503, ctx.Response.StatusCode())
	assert.Equal(t, "DEGRADED", decodeBody(t, ctx)["code"])
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrMissingEventType, 400},
		{domain.ErrInvalidEventType, 400},
		{domain.ErrInvalidPayload, 400},
		{domain.ErrUnauthorized, 401},
		{domain.ErrRateLimited, 429},
		{domain.ErrBackendNotConfigured, 503},
		{domain.ErrBackendMisconfigured, 503},
		{domain.ErrSnapshotNotFound, 500},
		{errors.New("boom"), 500},
	}
	for _, tc := range cases {
		status, _ := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}
