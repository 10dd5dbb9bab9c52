package repository

import (
	"context"

	"github.com/openhouse/marketing-stats/domain"
)

// SnapshotRepository reads and overwrites the single current stats row.
type SnapshotRepository interface {
	Get(ctx context.Context) (*domain.PlatformStats, error)
	Save(ctx context.Context, stats *domain.PlatformStats) error
}
