// Command worker runs the Worker Service: it consumes sub-jobs from the
// jobs queue, runs each through a fresh Scan Runner child process, and
// emits started/terminal ResultMessages onto the results queue.
package main

import (
	"context"
	"os"

	"github.com/hintsweep/scanpipe/config"
	"github.com/hintsweep/scanpipe/internal/adapters/worker"
	"github.com/hintsweep/scanpipe/internal/bootstrap"
)

func main() {
	logger := bootstrap.InitLogger()

	var cfg config.WorkerConfig
	if err := bootstrap.LoadConfig(&cfg); err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ntpCtx, stopNTP := context.WithCancel(context.Background())
	defer stopNTP()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, QueueConfig: cfg.Queue, Logger: logger})
	if err != nil {
		logger.Error("connect database failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Postgres.RunMigrationsOnStart {
		if err := bootstrap.RunMigrations(context.Background(), db, logger); err != nil {
			logger.Error("run migrations failed", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, QueueConfig: cfg.Queue, Logger: logger})
	if err != nil {
		logger.Error("connect redis failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	adapters := bootstrap.BuildAdapters(ntpCtx, db, redisClient, cfg.Queue, cfg.Clock, logger)

	metricsSink, err := bootstrap.BuildMetricsSink(cfg.Observability, logger)
	if err != nil {
		logger.Error("build metrics sink failed", "error", err)
		os.Exit(1)
	}
	defer metricsSink.Close()

	w, err := worker.New(worker.Config{
		JobsQueue:      adapters.JobsQueue,
		ResultsQueue:   adapters.ResultsQueue,
		Clock:          adapters.Clock,
		Children:       worker.ProcessRunner{Path: cfg.ScanRunnerPath},
		Concurrency:    cfg.Concurrency,
		DefaultRunTime: cfg.DefaultRunTime,
		MaxMessageSize: cfg.Queue.MaxMessageSize,
		EngineVersion:  cfg.EngineVersion,
		Logger:         logger.With("service", "worker"),
		Metrics:        metricsSink,
	})
	if err != nil {
		logger.Error("construct worker failed", "error", err)
		os.Exit(1)
	}

	if err := bootstrap.Run("worker", logger, w.Run); err != nil {
		logger.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}
