// Command herdsim-service is the main HTTP server and worker process for
// the dairy-herd forecasting service.
//
// Purpose:
//
//	This binary serves the forecast submission API (job/dataset/scenario
//	CRUD, progress streaming) and runs the worker supervisor that drains
//	the job queue and drives the Monte Carlo orchestration pipeline. It
//	initializes core dependencies (Postgres, Redis, S3-compatible object
//	store) and serves HTTP requests with graceful shutdown handling.
//
// Dependencies:
//   - internal/config: Configuration loading and validation
//   - internal/api: HTTP server with health/readiness endpoints
//   - internal/jobs, internal/queue, internal/bus, internal/artifacts: job pipeline
//   - internal/worker: supervisor draining the queue into the Monte Carlo pipeline
//   - internal/datasets, internal/scenarios: out-of-core-scope boundary repositories
//
// Key Responsibilities:
//   - Load configuration and initialize runtime dependencies
//   - Register forecast API routes (/forecasts/v1/*)
//   - Register health/readiness endpoints (/forecasts/v1/status/*)
//   - Start the worker supervisor
//   - Serve HTTP requests on configured port
//   - Handle graceful shutdown (SIGINT/SIGTERM)
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dairyforecast/herdsim/internal/api"
	"github.com/dairyforecast/herdsim/internal/artifacts"
	"github.com/dairyforecast/herdsim/internal/bus"
	"github.com/dairyforecast/herdsim/internal/config"
	"github.com/dairyforecast/herdsim/internal/datasets"
	"github.com/dairyforecast/herdsim/internal/jobs"
	"github.com/dairyforecast/herdsim/internal/montecarlo"
	"github.com/dairyforecast/herdsim/internal/observability"
	"github.com/dairyforecast/herdsim/internal/queue"
	"github.com/dairyforecast/herdsim/internal/scenarios"
	"github.com/dairyforecast/herdsim/internal/storage/postgres"
	"github.com/dairyforecast/herdsim/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg := config.MustLoad()

	obsCfg := observability.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.SimulationVersion,
		Environment:    cfg.Environment,
		Endpoint:       cfg.TelemetryEndpoint,
		Protocol:       cfg.TelemetryProtocol,
		Headers:        map[string]string{},
		Insecure:       cfg.TelemetryInsecure,
		LogLevel:       cfg.LogLevel,
	}
	obs := observability.MustInit(ctx, obsCfg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			obs.Logger.Error("failed to shutdown observability", zap.Error(err))
		}
	}()
	logger := obs.Logger

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to parse Redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	cancel()

	artifactStore, err := artifacts.NewStore(ctx, artifacts.Config{
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Region:          cfg.S3Region,
		DatasetsBucket:  cfg.S3DatasetsBucket,
		ResultsBucket:   cfg.S3ResultsBucket,
		ExportsBucket:   cfg.S3ExportsBucket,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize object store adapter", zap.Error(err))
	}

	jobStore := jobs.NewStore(store.Pool())
	jobQueue := queue.New(redisClient, "forecast_jobs:queue")
	progressBus := bus.NewRedisBus(redisClient, logger)
	datasetRepo := datasets.NewRepository(store.Pool(), artifactStore)
	scenarioRepo := scenarios.NewRepository(store.Pool())

	apiServer := api.NewServer(api.Config{
		Port:         cfg.HTTPPort,
		Logger:       logger,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		EnableRBAC:   cfg.EnableRBAC,
		Pool:         store.Pool(),
		RedisClient:  redisClient,
	})

	jobsHandler := api.NewJobsHandler(jobStore, jobQueue, progressBus, artifactStore, datasetRepo, logger, cfg.JobExpiresIn, cfg.StreamHeartbeatInterval)
	apiServer.RegisterJobRoutes(jobsHandler)

	datasetsHandler := api.NewDatasetsHandler(datasetRepo, logger, cfg.MaxUploadBytes)
	apiServer.RegisterDatasetRoutes(datasetsHandler)

	scenariosHandler := api.NewScenariosHandler(scenarioRepo, logger)
	apiServer.RegisterScenarioRoutes(scenariosHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      apiServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting herdsim service",
			zap.String("service", cfg.ServiceName),
			zap.String("environment", cfg.Environment),
			zap.Int("port", cfg.HTTPPort),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	supervisor := worker.New(jobStore, jobQueue, progressBus, datasetRepo, artifactStore, logger, worker.Config{
		Workers:         cfg.WorkerCount,
		PollInterval:    cfg.WorkerPollInterval,
		StuckJobTimeout: cfg.StuckJobTimeout,
		MaxAttempts:     cfg.JobMaxAttempts,
		BaseBackoff:     cfg.JobBaseBackoff,
		MonteCarlo: montecarlo.Config{
			ParallelEnabled: cfg.MCParallelEnabled,
			MaxProcesses:    cfg.MCMaxProcesses,
			BatchSize:       cfg.MCBatchSize,
		},
	})

	workerCtx, workerCancel := context.WithCancel(ctx)
	go func() {
		if err := supervisor.Start(workerCtx); err != nil {
			logger.Error("worker supervisor failed", zap.Error(err))
		}
	}()
	defer func() {
		workerCancel()
		supervisor.Stop()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("server error", zap.Error(err))

	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			if err := srv.Close(); err != nil {
				logger.Error("force close failed", zap.Error(err))
			}
		}

		logger.Info("shutdown complete")
	}
}
