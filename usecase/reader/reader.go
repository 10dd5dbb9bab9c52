package reader

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/internal/metrics"
	"github.com/openhouse/marketing-stats/pkg/logger"
	"github.com/openhouse/marketing-stats/repository"
)

type UseCase struct {
	snapshots  repository.SnapshotRepository
	counter    repository.EventCounter
	metrics    *metrics.Metrics
	logger     *zap.Logger
	liveWindow time.Duration
	now        func() time.Time
}

// New builds the readers over the read-only tier. Nil repositories mean the
// backend is not configured and every call serves the fallback.
func New(snapshots repository.SnapshotRepository, counter repository.EventCounter, m *metrics.Metrics, log *zap.Logger, liveWindow time.Duration) *UseCase {
	if log == nil {
		log = zap.NewNop()
	}
	if liveWindow <= 0 {
		liveWindow = 5 * time.Minute
	}
	return &UseCase{
		snapshots:  snapshots,
		counter:    counter,
		metrics:    m,
		logger:     log,
		liveWindow: liveWindow,
		now:        time.Now,
	}
}

// Snapshot returns the persisted stats or the fixed default. It never fails.
func (uc *UseCase) Snapshot(ctx context.Context) domain.PlatformStats {
	if uc.snapshots == nil {
		return uc.snapshotFallback(ctx, metrics.FallbackNotConfigured, nil)
	}

	stats, err := uc.snapshots.Get(ctx)
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		return uc.snapshotFallback(ctx, metrics.FallbackNoRow, nil)
	case err != nil:
		return uc.snapshotFallback(ctx, metrics.FallbackBackendError, err)
	case stats == nil:
		return uc.snapshotFallback(ctx, metrics.FallbackNoRow, nil)
	}
	return *stats
}

// Live counts recent sessions and all-time interactions. Any failure yields zeros.
func (uc *UseCase) Live(ctx context.Context) domain.LiveStats {
	if uc.counter == nil {
		uc.fallback(ctx, metrics.ReaderLive, metrics.FallbackNotConfigured, nil)
		return domain.LiveStats{}
	}

	var active, questions, downloads int64
	since := uc.now().Add(-uc.liveWindow)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		active, err = uc.counter.CountByType(gctx, domain.EventSession, since)
		return err
	})
	g.Go(func() (err error) {
		questions, err = uc.counter.CountByType(gctx, domain.EventChat, time.Time{})
		return err
	})
	g.Go(func() (err error) {
		downloads, err = uc.counter.CountByType(gctx, domain.EventPDFDownload, time.Time{})
		return err
	})
	if err := g.Wait(); err != nil {
		uc.fallback(ctx, metrics.ReaderLive, metrics.FallbackBackendError, err)
		return domain.LiveStats{}
	}

	return domain.NewLiveStats(active, questions, downloads)
}

func (uc *UseCase) snapshotFallback(ctx context.Context, reason string, err error) domain.PlatformStats {
	uc.fallback(ctx, metrics.ReaderSnapshot, reason, err)
	return domain.DefaultPlatformStats()
}

func (uc *UseCase) fallback(ctx context.Context, reader, reason string, err error) {
	fields := []zap.Field{zap.String("reader", reader), zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.WithRequestID(ctx, uc.logger).Warn("serving fallback stats", fields...)
	uc.metrics.RecordFallback(reader, reason)
}
