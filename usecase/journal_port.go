package usecase

import (
	"context"

	"github.com/openhouse/marketing-stats/domain"
)

// EventJournal keeps events the event log could not accept so they can be replayed later.
type EventJournal interface {
	Defer(ctx context.Context, event domain.Event, reason string) error
}
