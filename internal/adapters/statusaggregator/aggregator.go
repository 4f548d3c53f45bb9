// Package statusaggregator implements the Status Aggregator: a periodic
// process that maintains quarter-hour buckets of queued/started/finished job
// counts and average timings, backfilling any buckets missed since its last
// run.
package statusaggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hintsweep/scanpipe/internal/core"
	"github.com/hintsweep/scanpipe/internal/data"
	"github.com/hintsweep/scanpipe/internal/domain/model"
)

// Config configures an Aggregator.
type Config struct {
	Jobs       core.JobRepository
	Aggregates core.AggregateRepository
	// Queue is polled for the open bucket's queue-depth snapshot.
	Queue  core.Queue
	Clock  core.Clock
	// Interval between buckets; defaults to 15 minutes.
	Interval time.Duration
	Logger   *slog.Logger
}

// Aggregator periodically rolls up job counts and timings into quarter-hour
// StatusBucket rows.
type Aggregator struct {
	cfg Config
}

// New constructs an Aggregator.
func New(cfg Config) *Aggregator {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Aggregator{cfg: cfg}
}

// Run ticks aligned to quarter-hour boundaries until ctx is canceled.
func (a *Aggregator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(a.untilNextBoundary()):
		}
		if err := a.Tick(ctx); err != nil {
			a.cfg.Logger.Error("status aggregator tick failed", "error", err)
		}
	}
}

func (a *Aggregator) untilNextBoundary() time.Duration {
	now := a.cfg.Clock.Now()
	next := floorToInterval(now, a.cfg.Interval).Add(a.cfg.Interval)
	d := next.Sub(now)
	if d <= 0 {
		d = a.cfg.Interval
	}
	return d
}

func floorToInterval(t time.Time, interval time.Duration) time.Time {
	return t.Truncate(interval)
}

// Tick reads the most recent bucket, backfills every fully-elapsed bucket
// since it (re-finalizing the previously-open one along the way), and
// updates the current open bucket, inserting it on its first tick and
// updating it on every subsequent tick within the same window.
func (a *Aggregator) Tick(ctx context.Context) error {
	now := a.cfg.Clock.Now()
	currentFloor := floorToInterval(now, a.cfg.Interval)

	latest, err := a.cfg.Aggregates.Latest(ctx)
	if err != nil {
		if !errors.Is(err, data.ErrBucketNotFound) {
			return fmt.Errorf("load latest bucket: %w", err)
		}
		latest = nil
	}

	if latest != nil {
		carriedDepth := latest.QueueDepth
		for start := latest.BucketStart; start.Before(currentFloor); start = start.Add(a.cfg.Interval) {
			closed, err := a.computeBucket(ctx, start, start.Add(a.cfg.Interval), carriedDepth, false)
			if err != nil {
				return err
			}
			if err := a.cfg.Aggregates.Upsert(ctx, closed); err != nil {
				return fmt.Errorf("persist bucket %s: %w", start, err)
			}
			carriedDepth = 0 // only the bucket that was actually open carries a real snapshot forward
		}
	}

	depth, err := a.queueDepth(ctx)
	if err != nil {
		a.cfg.Logger.Warn("queue depth snapshot failed", "error", err)
	}
	open, err := a.computeBucket(ctx, currentFloor, now, depth, true)
	if err != nil {
		return err
	}
	if err := a.cfg.Aggregates.Upsert(ctx, open); err != nil {
		return fmt.Errorf("persist open bucket %s: %w", currentFloor, err)
	}
	return nil
}

func (a *Aggregator) queueDepth(ctx context.Context) (int64, error) {
	if a.cfg.Queue == nil {
		return 0, nil
	}
	return a.cfg.Queue.MessagesCount(ctx)
}

// computeBucket tallies job counts and average timings over [start, end) per
// §4.4: queued/started/finished are each counted by their own timestamp
// landing in the window, while the averages are computed only over jobs
// whose terminal (finished) event lands in it.
func (a *Aggregator) computeBucket(ctx context.Context, start, end time.Time, queueDepth int64, open bool) (*model.StatusBucket, error) {
	queued, err := a.cfg.Jobs.ListQueuedBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list queued: %w", err)
	}
	started, err := a.cfg.Jobs.ListStartedBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list started: %w", err)
	}
	finished, err := a.cfg.Jobs.ListFinishedBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list finished: %w", err)
	}

	avgStart, avgFinish := averageTimings(finished)

	return &model.StatusBucket{
		BucketStart:   start,
		Queued:        len(queued),
		Started:       len(started),
		Finished:      len(finished),
		AverageStart:  avgStart,
		AverageFinish: avgFinish,
		QueueDepth:    queueDepth,
		Open:          open,
	}, nil
}

func averageTimings(finished []*model.Job) (avgStart, avgFinish int64) {
	var startSum, finishSum, n int64
	for _, j := range finished {
		if j.Started == nil || j.Finished == nil {
			continue
		}
		startSum += j.Started.Sub(j.Queued).Milliseconds()
		finishSum += j.Finished.Sub(*j.Started).Milliseconds()
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return startSum / n, finishSum / n
}
