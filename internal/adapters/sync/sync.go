// Package sync implements the Sync Service: it subscribes to the results
// queue and merges each ResultMessage into the durable Job record under a
// per-job distributed lock.
package sync

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hintsweep/scanpipe/internal/core"
	"github.com/hintsweep/scanpipe/internal/domain/model"
	"github.com/hintsweep/scanpipe/internal/domain/scan"
	dberrors "github.com/hintsweep/scanpipe/internal/errors"
)

// lockPrefix namespaces job leases from any other use of the same Locker.
const lockPrefix = "job-lock:"

// Config configures a Sync service.
type Config struct {
	ResultsQueue core.Queue
	Jobs         core.JobRepository
	Lock         core.Locker
	// LockTTL must exceed the maximum time a single merge can take; it
	// defaults to 30s when zero.
	LockTTL time.Duration
	Logger  *slog.Logger
}

// Sync merges ResultMessages from the results queue into the durable job
// store. Each process instance holds leases under its own random owner
// token, so two Sync processes never step on each other's in-flight merges.
type Sync struct {
	cfg   Config
	owner string
}

// New constructs a Sync service with a fresh owner token.
func New(cfg Config) *Sync {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Sync{cfg: cfg, owner: uuid.NewString()}
}

// Run listens on the results queue until ctx is canceled.
func (s *Sync) Run(ctx context.Context) error {
	return s.cfg.ResultsQueue.Listen(ctx, s.handle)
}

// handle implements §4.3: acquire the job's lock, load the durable record,
// apply the merge, persist, release. Any failure along the way is logged and
// the message is left unacknowledged-equivalent (at-least-once redelivery by
// the bus is the expected recovery path), matching the "lock acquisition
// failure: sync skips the message" failure semantics.
func (s *Sync) handle(ctx context.Context, payload []byte) error {
	var msg model.ResultMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.cfg.Logger.Error("discarding unparseable result message", "error", err)
		return nil
	}

	log := s.cfg.Logger.With("job_id", msg.ID)
	name := lockPrefix + msg.ID

	ok, err := s.cfg.Lock.Lock(ctx, name, s.owner, s.cfg.LockTTL)
	if err != nil {
		log.Error("lock acquisition failed, relying on redelivery", "error", err)
		return nil
	}
	if !ok {
		log.Warn("relying on redelivery", "reason", core.ErrLockHeld)
		return nil
	}
	defer func() {
		if unlockErr := s.cfg.Lock.Unlock(ctx, name, s.owner); unlockErr != nil {
			log.Error("unlock failed", "error", unlockErr)
		}
	}()

	dbJob, err := s.cfg.Jobs.GetByID(ctx, msg.ID)
	if err != nil {
		log.Error("job record unavailable, relying on redelivery",
			"error", err, "error_code", dberrors.GetCode(err))
		return nil
	}

	scan.Merge(dbJob, msg)

	if err := s.cfg.Jobs.Upsert(ctx, dbJob); err != nil {
		log.Error("persist merged job failed", "error", err, "error_code", dberrors.GetCode(err))
	}
	return nil
}
