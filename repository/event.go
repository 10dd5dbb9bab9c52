package repository

import (
	"context"
	"time"

	"github.com/openhouse/marketing-stats/domain"
)

// EventRepository is the append-only event log.
type EventRepository interface {
	Append(ctx context.Context, event domain.Event) error
}

// EventCounter answers the counting queries the aggregator and live reader need.
// A zero since means all time.
type EventCounter interface {
	CountByType(ctx context.Context, eventType domain.EventType, since time.Time) (int64, error)
	CountDistinctActive(ctx context.Context, since time.Time) (int64, error)
}
