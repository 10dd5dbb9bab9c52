package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/internal/metrics"
)

type fakeCounter struct {
	mu        sync.Mutex
	byType    map[domain.EventType]int64
	typeErr   map[domain.EventType]error
	active    int64
	activeErr error
	since     time.Time
}

func (f *fakeCounter) CountByType(_ context.Context, eventType domain.EventType, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.typeErr[eventType]; err != nil {
		return 0, err
	}
	return f.byType[eventType], nil
}

func (f *fakeCounter) CountDistinctActive(_ context.Context, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = since
	return f.active, f.activeErr
}

type fakeUnits struct {
	total int64
	err   error
}

func (f fakeUnits) TotalUnits(context.Context) (int64, error) { return f.total, f.err }

type fakeSnapshots struct {
	saved []domain.PlatformStats
	err   error
}

func (f *fakeSnapshots) Get(context.Context) (*domain.PlatformStats, error) {
	if len(f.saved) == 0 {
		return nil, domain.ErrSnapshotNotFound
	}
	last := f.saved[len(f.saved)-1]
	return &last, nil
}

func (f *fakeSnapshots) Save(_ context.Context, stats *domain.PlatformStats) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, *stats)
	return nil
}

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newUseCase(counter *fakeCounter, units fakeUnits, snapshots *fakeSnapshots) *UseCase {
	uc := New(counter, units, snapshots, metrics.New(metrics.Config{}), nil, Config{})
	uc.now = func() time.Time { return fixedNow }
	return uc
}

func seededCounter() *fakeCounter {
	return &fakeCounter{
		byType: map[domain.EventType]int64{
			domain.EventChat:        40,
			domain.EventPDFDownload: 12,
			domain.EventSession:     999,
		},
		active: 50,
	}
}

func TestRunComputesAndSavesSnapshot(t *testing.T) {
	counter := seededCounter()
	snapshots := &fakeSnapshots{}
	uc := newUseCase(counter, fakeUnits{total: 200}, snapshots)

	stats, err := uc.Run(context.Background(), metrics.TriggerHTTP)
	require.NoError(t, err)

	assert.Equal(t, int64(50), stats.ActiveUsers)
	assert.Equal(t, int64(40), stats.QuestionsAnswered)
	assert.Equal(t, int64(12), stats.PDFDownloads)
	assert.InDelta(t, 0.25, stats.EngagementRate, 1e-9)
	assert.Equal(t, fixedNow, stats.UpdatedAt)
	assert.Equal(t, fixedNow.Add(-30*24*time.Hour), counter.since)
	require.Len(t, snapshots.saved, 1)
}

func TestRunIsIdempotentOverUnchangedLog(t *testing.T) {
	snapshots := &fakeSnapshots{}
	uc := newUseCase(seededCounter(), fakeUnits{total: 80}, snapshots)

	first, err := uc.Run(context.Background(), metrics.TriggerCron)
	require.NoError(t, err)
	uc.now = func() time.Time { return fixedNow.Add(10 * time.Minute) }
	second, err := uc.Run(context.Background(), metrics.TriggerCron)
	require.NoError(t, err)

	assert.True(t, first.SameCounters(second))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestRunNewChatEventsGrowQuestions(t *testing.T) {
	counter := seededCounter()
	uc := newUseCase(counter, fakeUnits{total: 100}, &fakeSnapshots{})

	before, err := uc.Run(context.Background(), metrics.TriggerHTTP)
	require.NoError(t, err)

	counter.mu.Lock()
	counter.byType[domain.EventChat] += 3
	counter.mu.Unlock()

	after, err := uc.Run(context.Background(), metrics.TriggerHTTP)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, after.QuestionsAnswered-before.QuestionsAnswered, int64(3))
}

func TestRunFailedStepsDefaultToZero(t *testing.T) {
	counter := seededCounter()
	counter.activeErr = errors.New("timeout")
	counter.typeErr = map[domain.EventType]error{domain.EventChat: errors.New("timeout")}
	uc := newUseCase(counter, fakeUnits{total: 100}, &fakeSnapshots{})

	stats, err := uc.Run(context.Background(), metrics.TriggerHTTP)
	require.NoError(t, err)

	assert.Zero(t, stats.ActiveUsers)
	assert.Zero(t, stats.QuestionsAnswered)
	assert.Equal(t, int64(12), stats.PDFDownloads)
	assert.Zero(t, stats.EngagementRate)
}

func TestRunUnitCountFallsBackToDefault(t *testing.T) {
	cases := []struct {
		name  string
		units fakeUnits
	}{
		{name: "error", units: fakeUnits{err: errors.New("relation units does not exist")}},
		{name: "zero", units: fakeUnits{total: 0}},
		{name: "negative", units: fakeUnits{total: -5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := newUseCase(seededCounter(), tc.units, &fakeSnapshots{})

			stats, err := uc.Run(context.Background(), metrics.TriggerCron)
			require.NoError(t, err)
			assert.InDelta(t, 0.5, stats.EngagementRate, 1e-9)
		})
	}
}

func TestRunSaveFailureFailsRun(t *testing.T) {
	uc := newUseCase(seededCounter(), fakeUnits{total: 100}, &fakeSnapshots{err: errors.New("read-only transaction")})

	_, err := uc.Run(context.Background(), metrics.TriggerHTTP)

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInternal))
	assert.Contains(t, err.Error(), "read-only transaction")
}

func TestRunMissingSnapshotRowFailsRun(t *testing.T) {
	uc := newUseCase(seededCounter(), fakeUnits{total: 100}, &fakeSnapshots{err: domain.ErrSnapshotNotFound})

	_, err := uc.Run(context.Background(), metrics.TriggerCron)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	assert.Equal(t, domain.ErrCodeInternal, domain.CodeOf(err))
}

func TestRunWithoutBackend(t *testing.T) {
	uc := New(nil, nil, nil, nil, nil, Config{})

	_, err := uc.Run(context.Background(), metrics.TriggerCron)

	assert.ErrorIs(t, err, domain.ErrBackendNotConfigured)
}
