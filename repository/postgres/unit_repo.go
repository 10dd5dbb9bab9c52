package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openhouse/marketing-stats/repository"
)

type unitRepository struct {
	pool *pgxpool.Pool
}

// NewUnitRepository counts the units listed on the platform.
func NewUnitRepository(pool *pgxpool.Pool) repository.UnitCounter {
	return &unitRepository{pool: pool}
}

func (r *unitRepository) TotalUnits(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM units`
	var total int64
	if err := r.pool.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
