// Command sync runs the Sync Service: it subscribes to the results queue
// and merges each ResultMessage into the durable job record under a
// per-job distributed lock.
package main

import (
	"context"
	"os"

	"github.com/hintsweep/scanpipe/config"
	"github.com/hintsweep/scanpipe/internal/adapters/sync"
	"github.com/hintsweep/scanpipe/internal/bootstrap"
)

func main() {
	logger := bootstrap.InitLogger()

	var cfg config.SyncConfig
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

	s := sync.New(sync.Config{
		ResultsQueue: adapters.ResultsQueue,
		Jobs:         adapters.Jobs,
		Lock:         adapters.Lock,
		LockTTL:      cfg.LockTTL,
		Logger:       logger.With("service", "sync"),
	})

	if err := bootstrap.Run("sync", logger, s.Run); err != nil {
		logger.Error("sync exited with error", "error", err)
		os.Exit(1)
	}
}
