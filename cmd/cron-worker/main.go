package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marlink/accountant/internal/cron"
	"github.com/marlink/accountant/internal/ksef/batch"
	"github.com/marlink/accountant/internal/ksef/client"
	"github.com/marlink/accountant/internal/submissions"
	"github.com/marlink/accountant/pkg/config"
	"github.com/marlink/accountant/pkg/db"
	"github.com/marlink/accountant/pkg/logger"
	"github.com/marlink/accountant/pkg/metrics"
	"github.com/marlink/accountant/pkg/migrate"
	"github.com/marlink/accountant/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	batchMetrics := metrics.NewBatchJobMetrics(prometheus.DefaultRegisterer)

	creds, err := client.LoadCredentials(cfg.KSeF)
	if err != nil {
		logg.Error(context.Background(), "failed to load ksef credentials", err)
		os.Exit(1)
	}
	submitter, err := client.New(cfg.KSeF, creds)
	if err != nil {
		logg.Error(context.Background(), "failed to create ksef client", err)
		os.Exit(1)
	}

	repo := submissions.NewRepository(dbClient.DB())
	reporter, err := batch.NewReporter(batch.ReporterParams{
		Logger:    logg,
		Repo:      repo,
		Metrics:   batchMetrics,
		Threshold: cfg.Job.FailThreshold,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reporter", err)
		os.Exit(1)
	}
	processor, err := batch.NewProcessor(batch.ProcessorParams{
		Logger:    logg,
		Repo:      repo,
		Submitter: submitter,
		Reporter:  reporter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create batch processor", err)
		os.Exit(1)
	}

	batchJob, err := cron.NewKsefBatchJob(cron.KsefBatchJobParams{
		Processor: processor,
		Limit:     cfg.Job.DefaultLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create batch job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redis.LockKey(cfg.Service.Kind), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(batchJob),
		Lock:     lock,
		Metrics:  batchMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
