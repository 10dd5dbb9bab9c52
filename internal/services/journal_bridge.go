package services

import (
	"context"

	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/usecase"
)

// JournalBridge exposes the processor to use cases through the EventJournal port.
type JournalBridge struct {
	processor *JournalProcessor
}

func NewJournalBridge(processor *JournalProcessor) *JournalBridge {
	return &JournalBridge{processor: processor}
}

func (b *JournalBridge) Defer(ctx context.Context, event domain.Event, reason string) error {
	if b == nil || b.processor == nil {
		return domain.ErrInvalidPayload
	}
	return b.processor.Defer(ctx, event, reason)
}

var _ usecase.EventJournal = (*JournalBridge)(nil)
