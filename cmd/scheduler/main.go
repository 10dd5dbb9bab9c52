package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openhouse/marketing-stats/internal/config"
	"github.com/openhouse/marketing-stats/internal/scheduler"
	"github.com/openhouse/marketing-stats/pkg/logger"
)

type options struct {
	url      string
	interval time.Duration
	timeout  time.Duration
	once     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{}
	}

	opts := options{
		url:      cfg.Scheduler.AggregateURL,
		interval: cfg.Stats.AggregateInterval,
		timeout:  cfg.Scheduler.Timeout,
	}

	cmd := &cobra.Command{
		Use:          "stats-scheduler",
		Short:        "Trigger platform stats aggregation on a fixed interval",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.url, "url", opts.url, "aggregate endpoint URL")
	flags.DurationVar(&opts.interval, "interval", opts.interval, "time between aggregation runs")
	flags.DurationVar(&opts.timeout, "timeout", opts.timeout, "per-run request timeout")
	flags.BoolVar(&opts.once, "once", false, "trigger a single run and exit")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		Service:     "stats-scheduler",
		Environment: cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	client, err := scheduler.NewClient(scheduler.Config{
		URL:        opts.url,
		ServiceKey: cfg.Backend.ServiceKey,
		Timeout:    opts.timeout,
		TokenTTL:   cfg.Scheduler.TokenTTL,
	}, log)
	if err != nil {
		return err
	}

	if opts.once {
		runCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()
		return client.RunOnce(runCtx)
	}

	if opts.interval < time.Second {
		return fmt.Errorf("interval must be at least 1s, got %s", opts.interval)
	}

	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	schedule := fmt.Sprintf("@every %ds", int(opts.interval.Seconds()))
	if _, err := c.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()
		_ = client.RunOnce(runCtx)
	}); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.Start()
	log.Info("scheduler started", zap.String("url", opts.url), zap.Duration("interval", opts.interval))

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("scheduler stopped")
	return nil
}
