package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/repository"
)

type snapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository returns a Postgres-backed implementation of SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) repository.SnapshotRepository {
	return &snapshotRepository{pool: pool}
}

func (r *snapshotRepository) Get(ctx context.Context) (*domain.PlatformStats, error) {
	const query = `
	SELECT active_users, questions_answered, pdf_downloads, engagement_rate, updated_at
	FROM platform_stats
	WHERE id = $1
	`
	var (
		activeUsers *int64
		questions   *int64
		downloads   *int64
		rate        *float64
		updatedAt   *time.Time
	)

	if err := r.pool.QueryRow(ctx, query, domain.SnapshotID).Scan(
		&activeUsers,
		&questions,
		&downloads,
		&rate,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}

	stats := &domain.PlatformStats{
		ActiveUsers:       int64OrZero(activeUsers),
		QuestionsAnswered: int64OrZero(questions),
		PDFDownloads:      int64OrZero(downloads),
		EngagementRate:    float64OrZero(rate),
	}
	if updatedAt != nil {
		stats.UpdatedAt = updatedAt.UTC()
	}
	return stats, nil
}

// Save overwrites the current row in place; concurrent writers resolve as last
// write wins. The row is seeded by migration, so a missing row is reported as
// ErrSnapshotNotFound rather than recreated.
func (r *snapshotRepository) Save(ctx context.Context, stats *domain.PlatformStats) error {
	if stats == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE platform_stats
	SET active_users = $2,
		questions_answered = $3,
		pdf_downloads = $4,
		engagement_rate = $5,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`

	var updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		domain.SnapshotID,
		stats.ActiveUsers,
		stats.QuestionsAnswered,
		stats.PDFDownloads,
		stats.EngagementRate,
	).Scan(&updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrSnapshotNotFound
		}
		return err
	}
	stats.UpdatedAt = updatedAt.UTC()
	return nil
}
