package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	dberrors "github.com/hintsweep/scanpipe/internal/errors"

	"time"

	"github.com/hintsweep/scanpipe/internal/domain/model"
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo implements core.JobRepository against the jobs table.
type JobRepo struct {
	DB           *sql.DB
	cfg          RepoConfig
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobRepo{
		DB:           db,
		cfg:          cfg,
		timeProvider: tp,
		logger:       logger,
	}
}

const jobColumns = `
  id,
  url,
  status,
  hints,
  config,
  max_run_time,
  engine_version,
  error,
  queued_at,
  started_at,
  finished_at,
  requested_by,
  created_at,
  updated_at
`

// GetByID returns the job with the given id, or data.ErrJobNotFound.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if id == "" {
		return nil, ErrJobIDRequired
	}

	row := r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, dberrors.MapDBError(fmt.Errorf("get job %s: %w", id, err))
	}
	return job, nil
}

// Upsert inserts or updates a job record, stamping UpdatedAt from the repo's
// time provider and CreatedAt only on first insert.
func (r *JobRepo) Upsert(ctx context.Context, job *model.Job) error {
	if job.ID == "" {
		return ErrJobIDRequired
	}

	hintsJSON, err := json.Marshal(job.Hints)
	if err != nil {
		return fmt.Errorf("marshal job hints: %w", err)
	}
	configJSON, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("marshal job config: %w", err)
	}
	var errJSON []byte
	if job.Error != nil {
		errJSON, err = json.Marshal(job.Error)
		if err != nil {
			return fmt.Errorf("marshal job error: %w", err)
		}
	}

	now := r.timeProvider.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	const query = `
INSERT INTO jobs (
  id, url, status, hints, config, max_run_time, engine_version, error,
  queued_at, started_at, finished_at, requested_by, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
  url = EXCLUDED.url,
  status = EXCLUDED.status,
  hints = EXCLUDED.hints,
  config = EXCLUDED.config,
  max_run_time = EXCLUDED.max_run_time,
  engine_version = EXCLUDED.engine_version,
  error = EXCLUDED.error,
  queued_at = EXCLUDED.queued_at,
  started_at = EXCLUDED.started_at,
  finished_at = EXCLUDED.finished_at,
  requested_by = EXCLUDED.requested_by,
  updated_at = EXCLUDED.updated_at
`

	_, err = r.DB.ExecContext(ctx, query,
		job.ID, job.URL, string(job.Status), hintsJSON, configJSON, job.MaxRunTime,
		job.EngineVersion, nullableJSON(errJSON), job.Queued, job.Started, job.Finished,
		job.RequestedBy, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return dberrors.MapDBError(fmt.Errorf("upsert job %s: %w", job.ID, err))
	}
	return nil
}

// ListQueuedBetween returns jobs whose queued_at falls in [start, end).
func (r *JobRepo) ListQueuedBetween(ctx context.Context, start, end time.Time) ([]*model.Job, error) {
	return r.listByTimeColumn(ctx, "queued_at", start, end)
}

// ListStartedBetween returns jobs whose started_at falls in [start, end).
func (r *JobRepo) ListStartedBetween(ctx context.Context, start, end time.Time) ([]*model.Job, error) {
	return r.listByTimeColumn(ctx, "started_at", start, end)
}

// ListFinishedBetween returns jobs whose finished_at falls in [start, end).
func (r *JobRepo) ListFinishedBetween(ctx context.Context, start, end time.Time) ([]*model.Job, error) {
	return r.listByTimeColumn(ctx, "finished_at", start, end)
}

// listByTimeColumn is shared by the three bucket-window queries the Status
// Aggregator uses; column is one of a fixed set of trusted identifiers, never
// caller-supplied, so it is safe to interpolate.
func (r *JobRepo) listByTimeColumn(ctx context.Context, column string, start, end time.Time) ([]*model.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE %s >= $1 AND %s < $2 ORDER BY %s`, jobColumns, column, column, column)
	rows, err := r.DB.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, dberrors.MapDBError(fmt.Errorf("list jobs by %s: %w", column, err))
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			r.logger.Warn("close rows", "err", cerr)
		}
	}()

	var jobs []*model.Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job row: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var job model.Job
	var status string
	var hintsJSON, configJSON, errJSON []byte

	err := row.Scan(
		&job.ID, &job.URL, &status, &hintsJSON, &configJSON, &job.MaxRunTime,
		&job.EngineVersion, &errJSON, &job.Queued, &job.Started, &job.Finished,
		&job.RequestedBy, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = model.JobStatus(status)

	if len(hintsJSON) > 0 {
		if err := json.Unmarshal(hintsJSON, &job.Hints); err != nil {
			return nil, fmt.Errorf("unmarshal hints: %w", err)
		}
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &job.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if len(errJSON) > 0 {
		job.Error = &model.JobError{}
		if err := json.Unmarshal(errJSON, job.Error); err != nil {
			return nil, fmt.Errorf("unmarshal error: %w", err)
		}
	}
	return &job, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
