package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolConfig sizes a pgx pool.
type PoolConfig struct {
	Tier            string
	Host            string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

// NewPool creates a pgx connection pool for one credential tier. An unreachable
// backend is logged but not fatal: pgx dials lazily, so the pool recovers once
// the backend comes back and callers see per-query errors meanwhile.
func NewPool(ctx context.Context, dsn string, cfg PoolConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pgxCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		pgxCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pgxCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		pgxCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	fields := []zap.Field{zap.String("tier", cfg.Tier), zap.String("host", cfg.Host)}
	if err := pool.Ping(pingCtx); err != nil {
		logger.Warn("postgres unreachable, continuing", append(fields, zap.Error(err))...)
		return pool, nil
	}

	logger.Info("connected to postgres", fields...)
	return pool, nil
}

// Close releases the pool and logs the result.
func Close(pool *pgxpool.Pool, logger *zap.Logger) {
	if pool == nil {
		return
	}
	pool.Close()
	if logger != nil {
		logger.Info("postgres pool closed")
	}
}
