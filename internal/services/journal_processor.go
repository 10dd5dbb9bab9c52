package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/internal/infrastructure/journal"
	"github.com/openhouse/marketing-stats/internal/metrics"
	"github.com/openhouse/marketing-stats/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the journal is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// JournalProcessor replays journaled events into the event log.
type JournalProcessor struct {
	store   *journal.Store
	monitor ConnectionHealth
	events  repository.EventRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ProcessorConfig
}

// NewJournalProcessor wires the drain schedule. events may be nil when the
// privileged tier is not configured; the journal then only accumulates.
func NewJournalProcessor(
	store *journal.Store,
	monitor ConnectionHealth,
	events repository.EventRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *JournalProcessor {
	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	jp := &JournalProcessor{
		store:   store,
		monitor: monitor,
		events:  events,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = jp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := jp.Drain(ctx); err != nil {
			jp.logger.Error("journal drain failed", zap.Error(err))
		}
	})

	return jp
}

// Start launches the cron scheduler.
func (jp *JournalProcessor) Start() {
	if jp == nil || jp.cron == nil {
		return
	}
	jp.cron.Start()
	jp.logger.Info("journal processor started")
}

// Stop gracefully stops the scheduler.
func (jp *JournalProcessor) Stop(ctx context.Context) {
	if jp == nil || jp.cron == nil {
		return
	}
	stopCtx := jp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	jp.logger.Info("journal processor stopped")
}

// Drain replays one batch synchronously.
func (jp *JournalProcessor) Drain(ctx context.Context) error {
	if jp == nil || jp.store == nil || jp.events == nil {
		return nil
	}
	if jp.monitor != nil && !jp.monitor.IsOnline() {
		jp.logger.Debug("skipping journal drain (offline)")
		return nil
	}

	entries, discarded, err := jp.store.Batch(jp.cfg.BatchSize)
	if err != nil {
		return err
	}
	if discarded > 0 {
		jp.logger.Warn("discarded undecodable journal entries", zap.Int("count", discarded))
		jp.metrics.RecordJournalDiscarded(discarded)
	}

	for _, entry := range entries {
		if err := jp.events.Append(ctx, entry.Event); err != nil {
			jp.logger.Error("failed to replay journaled event",
				zap.String("entry_id", entry.ID),
				zap.String("type", string(entry.Event.Type)),
				zap.Error(err))

			if entry.Retries+1 >= jp.cfg.MaxRetries {
				jp.logger.Warn("dropping journaled event (max retries reached)", zap.String("entry_id", entry.ID))
				if err := jp.store.Remove(entry); err != nil {
					jp.logger.Error("failed to remove dropped journal entry",
						zap.String("entry_id", entry.ID),
						zap.Error(err))
				}
				jp.metrics.RecordJournal("dropped")
				continue
			}
			if err := jp.store.Retry(entry); err != nil {
				jp.logger.Error("failed to update journal entry", zap.Error(err))
			}
			continue
		}

		if err := jp.store.Remove(entry); err != nil {
			jp.logger.Warn("failed to purge replayed journal entry", zap.Error(err))
		}
		jp.metrics.RecordJournal("replayed")
	}
	return nil
}

// Defer persists an event for later replay.
func (jp *JournalProcessor) Defer(_ context.Context, event domain.Event, reason string) error {
	if jp == nil || jp.store == nil {
		return fmt.Errorf("journal processor not configured")
	}
	return jp.store.Append(journal.Entry{Event: event, Reason: reason})
}
