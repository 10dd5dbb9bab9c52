package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/repository"
)

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a Postgres-backed event log.
func NewEventRepository(pool *pgxpool.Pool) repository.EventRepository {
	return &eventRepository{pool: pool}
}

// NewEventCounter creates the counting side of the event log, usually on the read-only pool.
func NewEventCounter(pool *pgxpool.Pool) repository.EventCounter {
	return &eventRepository{pool: pool}
}

func (r *eventRepository) Append(ctx context.Context, event domain.Event) error {
	const query = `
	INSERT INTO analytics_events (type, development_id, unit_id)
	VALUES ($1, $2, $3)
	`
	_, err := r.pool.Exec(ctx, query, string(event.Type), event.DevelopmentID, event.UnitID)
	return err
}

func (r *eventRepository) CountByType(ctx context.Context, eventType domain.EventType, since time.Time) (int64, error) {
	const query = `
	SELECT COUNT(*)
	FROM analytics_events
	WHERE type = $1
	  AND ($2::timestamptz IS NULL OR created_at >= $2)
	`
	var count int64
	if err := r.pool.QueryRow(ctx, query, string(eventType), nullTime(since)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountDistinctActive groups by unit; events without a unit count as their own visitor.
func (r *eventRepository) CountDistinctActive(ctx context.Context, since time.Time) (int64, error) {
	const query = `
	SELECT COUNT(DISTINCT COALESCE(unit_id, 'event:' || id::text))
	FROM analytics_events
	WHERE ($1::timestamptz IS NULL OR created_at >= $1)
	`
	var count int64
	if err := r.pool.QueryRow(ctx, query, nullTime(since)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
