package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hintsweep/scanpipe/internal/core"
	"github.com/hintsweep/scanpipe/internal/domain/job"
	"github.com/hintsweep/scanpipe/internal/domain/model"
	"github.com/hintsweep/scanpipe/internal/domain/scan"
	"github.com/hintsweep/scanpipe/internal/observability/metrics"
	"github.com/hintsweep/scanpipe/internal/observability/statsd"
)

// shutdownError is the synthetic error reported for sub-jobs still in flight
// when the worker receives a shutdown signal.
const shutdownError = "worker shutting down"

// timeoutError is the diagnostic surfaced when a sub-job's deadline elapses
// without a response from its child. Per the design notes, this is treated
// as a successful empty scan rather than a failure: still-pending hints are
// marked pass, not error.
const timeoutError = "TIMEOUT"

// Config configures a Worker.
type Config struct {
	JobsQueue    core.Queue
	ResultsQueue core.Queue
	Clock        core.Clock
	Children     ChildRunner

	// Concurrency bounds how many sub-jobs this worker processes at once.
	Concurrency int
	// DefaultRunTime is used for sub-jobs that specify no maxRunTime.
	DefaultRunTime time.Duration
	// MaxMessageSize is the results bus's hard per-message size limit.
	MaxMessageSize int
	// EngineVersion is stamped onto every ResultMessage this worker emits.
	EngineVersion string

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Worker consumes sub-jobs from the jobs queue, runs each through a fresh
// Scan Runner child process, and emits exactly one started ResultMessage
// followed by one or more terminal ResultMessages (multiple only when
// oversize partitioning applies) onto the results queue, within the
// sub-job's deadline.
type Worker struct {
	cfg      Config
	deadline *job.DeadlinePolicy
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
}

// New constructs a Worker.
func New(cfg Config) (*Worker, error) {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	deadline, err := job.NewDeadlinePolicy(cfg.DefaultRunTime)
	if err != nil {
		return nil, fmt.Errorf("worker deadline policy: %w", err)
	}
	return &Worker{
		cfg:      cfg,
		deadline: deadline,
		sem:      semaphore.NewWeighted(int64(cfg.Concurrency)),
	}, nil
}

// Run listens on the jobs queue until ctx is canceled. Sub-jobs already
// in flight are canceled and reported as failed before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	err := w.cfg.JobsQueue.Listen(ctx, w.accept)
	w.wg.Wait()
	return err
}

// accept admits one sub-job payload, blocking if Concurrency sub-jobs are
// already in flight, then processes it asynchronously so Listen can keep
// polling for the next message.
func (w *Worker) accept(ctx context.Context, payload []byte) error {
	var subJob model.SubJob
	if err := json.Unmarshal(payload, &subJob); err != nil {
		w.cfg.Logger.Error("discarding unparseable sub-job", "error", err)
		return nil
	}

	if err := w.sem.Acquire(ctx, 1); err != nil {
		return nil
	}

	w.wg.Add(1)
	go func() {
		defer func() { w.sem.Release(1); w.wg.Done() }()
		w.process(ctx, subJob)
	}()
	return nil
}

// process implements §4.1's per-sub-job state machine:
// ACCEPTED → RUNNING → [COMPLETE | FAILED | TIMED_OUT].
func (w *Worker) process(ctx context.Context, sj model.SubJob) {
	log := w.cfg.Logger.With("job_id", sj.ID, "part", sj.PartInfo.Part)

	started := w.cfg.Clock.Now()
	w.emit(ctx, model.ResultMessage{
		ID: sj.ID, URL: sj.URL, PartInfo: sj.PartInfo,
		Hints: sj.Hints, Status: model.JobStatusStarted,
		Started: &started, EngineVersion: w.cfg.EngineVersion,
	})

	deadlineSeconds := w.deadline.Resolve(time.Duration(sj.MaxRunTime) * time.Second).Seconds
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(deadlineSeconds)*time.Second)
	defer cancel()

	handle, err := w.cfg.Children.Start(sj)
	if err != nil {
		log.Error("spawn scan runner failed", "error", err)
		finished := w.cfg.Clock.Now()
		w.finishFailed(ctx, sj, &finished, fmt.Errorf("spawn scan runner: %w", err))
		w.recordMetric(started, finished, model.JobStatusError, len(sj.Hints))
		return
	}

	select {
	case res := <-handle.Done():
		finished := w.cfg.Clock.Now()
		status := w.finishFromChild(ctx, sj, &finished, res)
		w.recordMetric(started, finished, status, len(sj.Hints))
	case <-runCtx.Done():
		handle.Terminate()
		finished := w.cfg.Clock.Now()
		if ctx.Err() != nil {
			log.Warn("worker shutting down with sub-job in flight")
			w.finishFailed(context.WithoutCancel(ctx), sj, &finished, errors.New(shutdownError))
			w.recordMetric(started, finished, model.JobStatusError, len(sj.Hints))
			return
		}
		log.Warn("sub-job deadline exceeded", "reason", core.ErrChildTimeout)
		w.finishTimeout(ctx, sj, &finished)
		w.recordMetric(started, finished, model.JobStatusFinished, len(sj.Hints))
	}
}

// finishFromChild builds and emits the terminal ResultMessage implied by the
// child's response (§4.1.1 on success, §4.1.2 on engine error, or a crash
// treated the same as an engine error), returning the resulting job status.
func (w *Worker) finishFromChild(ctx context.Context, sj model.SubJob, finished *time.Time, res ChildResult) model.JobStatus {
	names := hintNames(sj.Hints)
	bundle := sj.Bundle()

	if res.Err != nil {
		w.cfg.Logger.Error("scan runner failed", "job_id", sj.ID, "error", res.Err)
		engineErr := &model.JobError{Message: res.Err.Error()}
		w.emit(ctx, model.ResultMessage{
			ID: sj.ID, URL: sj.URL, PartInfo: sj.PartInfo,
			Hints: scan.ResolveError(names, bundle, engineErr), Status: model.JobStatusError,
			Error: engineErr, Finished: finished, EngineVersion: w.cfg.EngineVersion,
		})
		return model.JobStatusError
	}

	if res.Response.OK {
		w.emit(ctx, model.ResultMessage{
			ID: sj.ID, URL: sj.URL, PartInfo: sj.PartInfo,
			Hints: scan.ResolveOK(names, bundle, res.Response.Messages), Status: model.JobStatusFinished,
			Finished: finished, EngineVersion: w.cfg.EngineVersion,
		})
		return model.JobStatusFinished
	}

	engineErr := res.Response.DecodeError()
	w.emit(ctx, model.ResultMessage{
		ID: sj.ID, URL: sj.URL, PartInfo: sj.PartInfo,
		Hints: scan.ResolveError(names, bundle, engineErr), Status: model.JobStatusError,
		Error: engineErr, Finished: finished, EngineVersion: w.cfg.EngineVersion,
	})
	return model.JobStatusError
}

// finishFailed emits a FAILED terminal for a sub-job that never reached the
// child (spawn failure) or was torn down mid-flight (shutdown).
func (w *Worker) finishFailed(ctx context.Context, sj model.SubJob, finished *time.Time, cause error) {
	names := hintNames(sj.Hints)
	engineErr := &model.JobError{Message: cause.Error()}
	w.emit(ctx, model.ResultMessage{
		ID: sj.ID, URL: sj.URL, PartInfo: sj.PartInfo,
		Hints: scan.ResolveError(names, sj.Bundle(), engineErr), Status: model.JobStatusError,
		Error: engineErr, Finished: finished, EngineVersion: w.cfg.EngineVersion,
	})
}

// finishTimeout emits the §4.1 step 5 deadline terminal: status finished,
// a TIMEOUT diagnostic, and every still-pending hint marked pass.
func (w *Worker) finishTimeout(ctx context.Context, sj model.SubJob, finished *time.Time) {
	w.emit(ctx, model.ResultMessage{
		ID: sj.ID, URL: sj.URL, PartInfo: sj.PartInfo,
		Hints: passAllPending(sj.Hints), Status: model.JobStatusFinished,
		Error: &model.JobError{Message: timeoutError}, Finished: finished, EngineVersion: w.cfg.EngineVersion,
	})
}

func (w *Worker) recordMetric(started, finished time.Time, status model.JobStatus, hintCount int) {
	if w.cfg.Metrics == nil {
		return
	}
	result := metrics.ResultSuccess
	if status == model.JobStatusError {
		result = metrics.ResultError
	}
	metrics.EmitJobLifecycle(w.cfg.Metrics, metrics.JobMetric{
		Status:     string(status),
		Transition: "terminal",
		Result:     result,
		Duration:   finished.Sub(started),
		HintCount:  hintCount,
	})
}

func hintNames(hints []model.HintResult) []string {
	names := make([]string, len(hints))
	for i, h := range hints {
		names[i] = h.Name
	}
	return names
}

// passAllPending marks every still-pending hint pass, leaving any hint a
// prior partition already resolved untouched.
func passAllPending(hints []model.HintResult) []model.HintResult {
	out := make([]model.HintResult, len(hints))
	for i, h := range hints {
		if h.Status == model.HintStatusPending {
			h.Status = model.HintStatusPass
		}
		out[i] = h
	}
	return out
}
