package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/marlink/accountant/api/routes"
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
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	batchMetrics := metrics.NewBatchJobMetrics(registry)

	repo := submissions.NewRepository(dbClient.DB())
	submissionsService, err := submissions.NewService(submissions.ServiceParams{Repo: repo})
	if err != nil {
		logg.Error(context.Background(), "failed to create submissions service", err)
		os.Exit(1)
	}

	processor, err := buildProcessor(cfg, logg, repo, batchMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create batch processor", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient,
			submissionsService, processor, batchMetrics, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildProcessor wires the submission pipeline when certificate material is
// configured. Without it the trigger surface still serves, rejecting run
// requests with a configuration error.
func buildProcessor(cfg *config.Config, logg *logger.Logger, repo submissions.Repository, batchMetrics *metrics.BatchJobMetrics) (*batch.Processor, error) {
	reporter, err := batch.NewReporter(batch.ReporterParams{
		Logger:    logg,
		Repo:      repo,
		Metrics:   batchMetrics,
		Threshold: cfg.Job.FailThreshold,
	})
	if err != nil {
		return nil, err
	}

	submitter, err := buildSubmitter(cfg)
	if err != nil {
		return nil, err
	}

	return batch.NewProcessor(batch.ProcessorParams{
		Logger:    logg,
		Repo:      repo,
		Submitter: submitter,
		Reporter:  reporter,
	})
}

func buildSubmitter(cfg *config.Config) (batch.Submitter, error) {
	if !cfg.KSeF.Configured() {
		return unconfiguredSubmitter{}, nil
	}
	creds, err := client.LoadCredentials(cfg.KSeF)
	if err != nil {
		return nil, err
	}
	return client.New(cfg.KSeF, creds)
}

// unconfiguredSubmitter stands in when no certificate material is present;
// the controllers reject run requests before it is ever reached.
type unconfiguredSubmitter struct{}

func (unconfiguredSubmitter) Submit(context.Context, string, []byte) (string, error) {
	return "", &client.StatusError{Code: http.StatusServiceUnavailable}
}
