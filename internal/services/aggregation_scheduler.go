package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/internal/metrics"
)

// Aggregator is the use case the scheduler drives.
type Aggregator interface {
	Run(ctx context.Context, trigger string) (domain.PlatformStats, error)
}

// AggregationScheduler runs the aggregator in-process on a fixed interval.
// It complements the external scheduler and shares its Run entrypoint.
type AggregationScheduler struct {
	aggregator Aggregator
	logger     *zap.Logger
	cron       *cron.Cron
	interval   time.Duration
}

func NewAggregationScheduler(aggregator Aggregator, interval time.Duration, logger *zap.Logger) *AggregationScheduler {
	if interval < time.Second {
		interval = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &AggregationScheduler{
		aggregator: aggregator,
		logger:     logger,
		interval:   interval,
		cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}

	schedule := fmt.Sprintf("@every %ds", int(interval.Seconds()))
	_, _ = s.cron.AddFunc(schedule, s.tick)
	return s
}

func (s *AggregationScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	// Run logs its own outcome.
	_, _ = s.aggregator.Run(ctx, metrics.TriggerCron)
}

func (s *AggregationScheduler) Start() {
	if s == nil || s.aggregator == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("aggregation scheduler started", zap.Duration("interval", s.interval))
}

func (s *AggregationScheduler) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("aggregation scheduler stopped")
}
