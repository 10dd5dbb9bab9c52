package recorder

import (
	"context"

	"go.uber.org/zap"

	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/internal/metrics"
	"github.com/openhouse/marketing-stats/pkg/logger"
	"github.com/openhouse/marketing-stats/repository"
	"github.com/openhouse/marketing-stats/usecase"
)

// Input is an ingestion request before validation.
type Input struct {
	Type          string
	DevelopmentID *string
	UnitID        *string
}

type UseCase struct {
	events  repository.EventRepository
	journal usecase.EventJournal
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New builds the recorder. A nil events repository means the backend is not configured.
func New(events repository.EventRepository, journal usecase.EventJournal, m *metrics.Metrics, log *zap.Logger) *UseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &UseCase{
		events:  events,
		journal: journal,
		metrics: m,
		logger:  log,
	}
}

// Record validates the input and appends exactly one event to the log.
func (uc *UseCase) Record(ctx context.Context, in Input) error {
	event, err := domain.NewEvent(in.Type, in.DevelopmentID, in.UnitID)
	if err != nil {
		uc.metrics.RecordEvent(string(event.Type), metrics.OutcomeRejected)
		return err
	}

	log := logger.WithRequestID(ctx, uc.logger).With(eventFields(event)...)

	if uc.events == nil {
		log.Warn("analytics backend not configured, event kept locally")
		uc.deferEvent(ctx, log, event, metrics.FallbackNotConfigured)
		uc.metrics.RecordEvent(string(event.Type), metrics.OutcomeUnavailable)
		return domain.ErrBackendNotConfigured
	}

	if err := uc.events.Append(ctx, event); err != nil {
		log.Error("failed to record event", zap.Error(err))
		uc.metrics.RecordEvent(string(event.Type), metrics.OutcomeFailed)
		return domain.WrapError(domain.ErrCodeInternal, "failed to record event", err)
	}

	uc.metrics.RecordEvent(string(event.Type), metrics.OutcomeRecorded)
	return nil
}

func (uc *UseCase) deferEvent(ctx context.Context, log *zap.Logger, event domain.Event, reason string) {
	if uc.journal == nil {
		return
	}
	if err := uc.journal.Defer(ctx, event, reason); err != nil {
		log.Error("failed to journal event", zap.Error(err))
		uc.metrics.RecordJournal("failed")
		return
	}
	uc.metrics.RecordJournal("deferred")
}

func eventFields(event domain.Event) []zap.Field {
	fields := []zap.Field{zap.String("type", string(event.Type))}
	if event.DevelopmentID != nil {
		fields = append(fields, zap.String("development_id", *event.DevelopmentID))
	}
	if event.UnitID != nil {
		fields = append(fields, zap.String("unit_id", *event.UnitID))
	}
	return fields
}
