package aggregator

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/internal/metrics"
	"github.com/openhouse/marketing-stats/pkg/logger"
	"github.com/openhouse/marketing-stats/repository"
)

// Sub-step names used in logs and metrics.
const (
	StepActiveUsers  = "active_users"
	StepQuestions    = "questions_answered"
	StepPDFDownloads = "pdf_downloads"
	StepTotalUnits   = "total_units"
)

type Config struct {
	ActiveWindow      time.Duration
	DefaultTotalUnits int64
}

type UseCase struct {
	counter   repository.EventCounter
	units     repository.UnitCounter
	snapshots repository.SnapshotRepository
	metrics   *metrics.Metrics
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

// New builds the aggregator. Nil repositories mean the privileged tier is not configured.
func New(
	counter repository.EventCounter,
	units repository.UnitCounter,
	snapshots repository.SnapshotRepository,
	m *metrics.Metrics,
	log *zap.Logger,
	cfg Config,
) *UseCase {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ActiveWindow <= 0 {
		cfg.ActiveWindow = 30 * 24 * time.Hour
	}
	if cfg.DefaultTotalUnits <= 0 {
		cfg.DefaultTotalUnits = domain.DefaultTotalUnits
	}
	return &UseCase{
		counter:   counter,
		units:     units,
		snapshots: snapshots,
		metrics:   m,
		logger:    log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run recomputes the snapshot from the event log and overwrites the current row.
// Counting failures degrade to zero; only a failed save fails the run.
func (uc *UseCase) Run(ctx context.Context, trigger string) (domain.PlatformStats, error) {
	started := uc.now()
	stats, err := uc.run(ctx, started)
	uc.metrics.RecordAggregation(trigger, err, uc.now().Sub(started))

	log := logger.WithRequestID(ctx, uc.logger).With(zap.String("trigger", trigger))
	if err != nil {
		log.Error("stats aggregation failed", zap.Error(err))
		return domain.PlatformStats{}, err
	}
	log.Info("stats aggregated",
		zap.Int64("active_users", stats.ActiveUsers),
		zap.Int64("questions_answered", stats.QuestionsAnswered),
		zap.Int64("pdf_downloads", stats.PDFDownloads),
		zap.Float64("engagement_rate", stats.EngagementRate))
	return stats, nil
}

func (uc *UseCase) run(ctx context.Context, now time.Time) (domain.PlatformStats, error) {
	if uc.counter == nil || uc.snapshots == nil {
		return domain.PlatformStats{}, domain.ErrBackendNotConfigured
	}

	var active, questions, downloads int64
	activeSince := now.Add(-uc.cfg.ActiveWindow)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		active = uc.step(gctx, StepActiveUsers, func(ctx context.Context) (int64, error) {
			return uc.counter.CountDistinctActive(ctx, activeSince)
		})
		return nil
	})
	g.Go(func() error {
		questions = uc.step(gctx, StepQuestions, func(ctx context.Context) (int64, error) {
			return uc.counter.CountByType(ctx, domain.EventChat, time.Time{})
		})
		return nil
	})
	g.Go(func() error {
		downloads = uc.step(gctx, StepPDFDownloads, func(ctx context.Context) (int64, error) {
			return uc.counter.CountByType(ctx, domain.EventPDFDownload, time.Time{})
		})
		return nil
	})
	_ = g.Wait()

	totalUnits := uc.totalUnits(ctx)

	stats := &domain.PlatformStats{
		ActiveUsers:       active,
		QuestionsAnswered: questions,
		PDFDownloads:      downloads,
		EngagementRate:    domain.UnitEngagementRate(active, totalUnits),
		UpdatedAt:         now.UTC(),
	}
	if err := uc.snapshots.Save(ctx, stats); err != nil {
		return domain.PlatformStats{}, domain.WrapError(domain.ErrCodeInternal, "failed to save stats snapshot", err)
	}
	return *stats, nil
}

func (uc *UseCase) step(ctx context.Context, name string, count func(context.Context) (int64, error)) int64 {
	value, err := count(ctx)
	if err != nil {
		logger.WithRequestID(ctx, uc.logger).Error("aggregation step failed, using zero",
			zap.String("step", name), zap.Error(err))
		uc.metrics.RecordAggregationStepFailure(name)
		return 0
	}
	return value
}

func (uc *UseCase) totalUnits(ctx context.Context) int64 {
	if uc.units == nil {
		return uc.cfg.DefaultTotalUnits
	}
	total, err := uc.units.TotalUnits(ctx)
	if err != nil {
		logger.WithRequestID(ctx, uc.logger).Warn("unit count unavailable, using default",
			zap.String("step", StepTotalUnits), zap.Error(err))
		uc.metrics.RecordAggregationStepFailure(StepTotalUnits)
		return uc.cfg.DefaultTotalUnits
	}
	if total <= 0 {
		return uc.cfg.DefaultTotalUnits
	}
	return total
}
