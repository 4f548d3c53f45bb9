// Command statusaggregator runs the Status Aggregator: it maintains
// quarter-hour buckets of queued/started/finished job counts and average
// timings, backfilling any buckets missed since its last run.
package main

import (
	"context"
	"os"

	"github.com/hintsweep/scanpipe/config"
	"github.com/hintsweep/scanpipe/internal/adapters/statusaggregator"
	"github.com/hintsweep/scanpipe/internal/bootstrap"
)

func main() {
	logger := bootstrap.InitLogger()

	var cfg config.StatusAggregatorConfig
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

	agg := statusaggregator.New(statusaggregator.Config{
		Jobs:       adapters.Jobs,
		Aggregates: adapters.Aggregates,
		Queue:      adapters.JobsQueue,
		Clock:      adapters.Clock,
		Interval:   cfg.Interval,
		Logger:     logger.With("service", "statusaggregator"),
	})

	if err := bootstrap.Run("statusaggregator", logger, agg.Run); err != nil {
		logger.Error("status aggregator exited with error", "error", err)
		os.Exit(1)
	}
}
