package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/hintsweep/scanpipe/config"
	"github.com/hintsweep/scanpipe/internal/adapters/clock"
	"github.com/hintsweep/scanpipe/internal/adapters/lock"
	"github.com/hintsweep/scanpipe/internal/adapters/queue"
	"github.com/hintsweep/scanpipe/internal/core"
	"github.com/hintsweep/scanpipe/internal/data"
)

// Adapters bundles every concrete implementation of a core port, built once
// at startup and handed to whichever service loop a binary runs.
type Adapters struct {
	Jobs       core.JobRepository
	Aggregates core.AggregateRepository
	JobsQueue  core.Queue
	ResultsQueue core.Queue
	Lock       core.Locker
	Clock      core.Clock
}

// BuildAdapters wires the data/Redis-backed adapters shared by every binary.
// ntpCtx governs the lifetime of the optional NTP background refresh loop;
// callers should cancel it on shutdown.
func BuildAdapters(ntpCtx context.Context, db *sql.DB, redisClient redis.UniversalClient, queueCfg config.QueueConfig, clockCfg config.ClockConfig, logger *slog.Logger) *Adapters {
	var c core.Clock = clock.System{}
	if clockCfg.Enabled() {
		c = clock.NewNTP(ntpCtx, clockCfg.NTPServer, clockCfg.NTPInterval, logger)
	}

	return &Adapters{
		Jobs:         data.NewJobRepo(db, data.RepoConfig{Logger: logger}),
		Aggregates:   data.NewStatusBucketRepo(db, logger),
		JobsQueue:    queue.New(redisClient, "scanpipe:jobs", queueCfg.MaxMessageSize),
		ResultsQueue: queue.New(redisClient, "scanpipe:results", queueCfg.MaxMessageSize),
		Lock:         lock.New(redisClient),
		Clock:        c,
	}
}
