package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/openhouse/marketing-stats/api/handler"
	"github.com/openhouse/marketing-stats/internal/config"
	"github.com/openhouse/marketing-stats/internal/infrastructure/journal"
	"github.com/openhouse/marketing-stats/internal/infrastructure/monitor"
	pgInfra "github.com/openhouse/marketing-stats/internal/infrastructure/postgres"
	redisInfra "github.com/openhouse/marketing-stats/internal/infrastructure/redis"
	"github.com/openhouse/marketing-stats/internal/metrics"
	"github.com/openhouse/marketing-stats/internal/middleware"
	"github.com/openhouse/marketing-stats/internal/router"
	"github.com/openhouse/marketing-stats/internal/services"
	"github.com/openhouse/marketing-stats/internal/services/lifecycle"
	"github.com/openhouse/marketing-stats/pkg/httpcontext"
	"github.com/openhouse/marketing-stats/pkg/logger"
	"github.com/openhouse/marketing-stats/repository"
	"github.com/openhouse/marketing-stats/repository/postgres"
	redisRepo "github.com/openhouse/marketing-stats/repository/redis"
	"github.com/openhouse/marketing-stats/usecase"
	aggregatorUC "github.com/openhouse/marketing-stats/usecase/aggregator"
	readerUC "github.com/openhouse/marketing-stats/usecase/reader"
	recorderUC "github.com/openhouse/marketing-stats/usecase/recorder"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		Service:     cfg.AppName,
		Environment: cfg.Environment,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	appMetrics := metrics.New(metrics.Config{ServiceName: cfg.AppName, Environment: cfg.Environment})

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Warn("migrations skipped", zap.Error(err))
	}

	readerPool := openPool(appCtx, cfg, "reader", cfg.Backend.ReaderDSN, zapLogger)
	writerPool := openPool(appCtx, cfg, "writer", cfg.Backend.WriterDSN, zapLogger)
	registerPool(manager, "postgres_reader", readerPool, zapLogger)
	registerPool(manager, "postgres_writer", writerPool, zapLogger)

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis)
	if err != nil {
		zapLogger.Warn("rate limiting disabled", zap.Error(err))
		redisClient = nil
	} else {
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
	}

	journalStore, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		zapLogger.Warn("journal unavailable, events without backend are only logged", zap.Error(err))
		journalStore = nil
	} else {
		manager.Register("journal", func(ctx context.Context) error {
			return journalStore.Close()
		})
	}

	mon := monitor.New(readerPool, writerPool, redisClient, journalStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	// Reader tier serves the public readers; the writer tier records and aggregates.
	var (
		snapshotReader repository.SnapshotRepository
		liveCounter    repository.EventCounter
		eventLog       repository.EventRepository
		eventCounter   repository.EventCounter
		unitCounter    repository.UnitCounter
		snapshotWriter repository.SnapshotRepository
	)
	if readerPool != nil {
		snapshotReader = postgres.NewSnapshotRepository(readerPool)
		liveCounter = postgres.NewEventCounter(readerPool)
	}
	if writerPool != nil {
		eventLog = postgres.NewEventRepository(writerPool)
		eventCounter = postgres.NewEventCounter(writerPool)
		unitCounter = postgres.NewUnitRepository(writerPool)
		snapshotWriter = postgres.NewSnapshotRepository(writerPool)
	}

	var journalProcessor *services.JournalProcessor
	if journalStore != nil {
		journalProcessor = services.NewJournalProcessor(
			journalStore,
			mon,
			eventLog,
			appMetrics,
			zapLogger,
			services.ProcessorConfig{
				Interval:   cfg.Journal.SyncInterval,
				BatchSize:  cfg.Journal.BatchSize,
				MaxRetries: cfg.Journal.MaxRetry,
			},
		)
		journalProcessor.Start()
		manager.Register("journal_processor", func(ctx context.Context) error {
			journalProcessor.Stop(ctx)
			return nil
		})
	}

	var eventJournal usecase.EventJournal
	if journalProcessor != nil {
		eventJournal = services.NewJournalBridge(journalProcessor)
	}

	recorderUseCase := recorderUC.New(eventLog, eventJournal, appMetrics, zapLogger)
	readerUseCase := readerUC.New(snapshotReader, liveCounter, appMetrics, zapLogger, cfg.Stats.LiveWindow)
	aggregatorUseCase := aggregatorUC.New(eventCounter, unitCounter, snapshotWriter, appMetrics, zapLogger, aggregatorUC.Config{
		ActiveWindow:      cfg.Stats.ActiveWindow,
		DefaultTotalUnits: cfg.Stats.DefaultTotalUnits,
	})

	if cfg.Stats.InternalSchedulerEnabled {
		aggScheduler := services.NewAggregationScheduler(aggregatorUseCase, cfg.Stats.AggregateInterval, zapLogger)
		aggScheduler.Start()
		manager.Register("aggregation_scheduler", func(ctx context.Context) error {
			aggScheduler.Stop(ctx)
			return nil
		})
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout).WithTrustedProxies(cfg.RateLimit.TrustedProxies)

	handlers := router.Handlers{
		Event: apiHandler.NewEventHandler(recorderUseCase, ctxAdapter, zapLogger),
		Stats: apiHandler.NewStatsHandler(readerUseCase, aggregatorUseCase, ctxAdapter, zapLogger).
			WithAggregateTimeout(cfg.Scheduler.Timeout),
		Health: apiHandler.NewHealthHandler(mon, apiHandler.Expected{
			Reader:  readerPool != nil,
			Writer:  writerPool != nil,
			Redis:   redisClient != nil,
			Journal: journalStore != nil,
		}, ctxAdapter, zapLogger),
	}
	if cfg.HTTP.EnableMetrics {
		handlers.Metrics = apiHandler.NewMetricsHandler(appMetrics.Handler())
	}

	mw := router.Middlewares{
		ServiceAuth: middleware.ServiceAuth(cfg.Backend.ServiceKey, zapLogger),
	}
	if redisClient != nil {
		mw.RateLimit = middleware.RateLimit(redisRepo.NewRateLimiter(redisClient), middleware.RateLimitConfig{
			Rate:           cfg.RateLimit.RequestsPerSecond,
			Burst:          cfg.RateLimit.Burst,
			TrustedProxies: cfg.RateLimit.TrustedProxies,
		}, appMetrics, zapLogger)
	}
	r := router.New(handlers, mw)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

// openPool connects one credential tier. A missing or malformed credential
// leaves the tier unconfigured rather than stopping the process.
func openPool(ctx context.Context, cfg *config.Config, tier string, dsn func() (string, error), log *zap.Logger) *pgxpool.Pool {
	connString, err := dsn()
	if err != nil {
		log.Warn("analytics backend tier not configured", zap.String("tier", tier), zap.Error(err))
		return nil
	}
	pool, err := pgInfra.NewPool(ctx, connString, pgInfra.PoolConfig{
		Tier:            tier,
		Host:            cfg.Backend.Host(),
		MaxOpenConns:    cfg.Backend.MaxOpenConns,
		MaxIdleConns:    cfg.Backend.MaxIdleConns,
		MaxConnLifetime: cfg.Backend.MaxConnLifetime,
	}, log)
	if err != nil {
		log.Error("postgres pool setup failed", zap.String("tier", tier), zap.Error(err))
		return nil
	}
	return pool
}

func registerPool(manager *lifecycle.Manager, name string, pool *pgxpool.Pool, log *zap.Logger) {
	if pool == nil {
		return
	}
	manager.Register(name, func(ctx context.Context) error {
		pgInfra.Close(pool, log)
		return nil
	})
}
