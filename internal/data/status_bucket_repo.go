package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	dberrors "github.com/hintsweep/scanpipe/internal/errors"

	"github.com/hintsweep/scanpipe/internal/domain/model"
)

// StatusBucketRepo implements core.AggregateRepository against the
// status_buckets table.
type StatusBucketRepo struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewStatusBucketRepo constructs a StatusBucketRepo.
func NewStatusBucketRepo(db *sql.DB, logger *slog.Logger) *StatusBucketRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusBucketRepo{DB: db, logger: logger}
}

const bucketColumns = `
  bucket_start,
  queued,
  started,
  finished,
  average_start_ms,
  average_finish_ms,
  queue_depth,
  open
`

// Latest returns the most recently started bucket row, or data.ErrBucketNotFound
// if no bucket has ever been written.
func (r *StatusBucketRepo) Latest(ctx context.Context) (*model.StatusBucket, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+bucketColumns+` FROM status_buckets ORDER BY bucket_start DESC LIMIT 1`)
	bucket, err := scanBucket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBucketNotFound
		}
		return nil, dberrors.MapDBError(fmt.Errorf("latest status bucket: %w", err))
	}
	return bucket, nil
}

// Upsert inserts or replaces the bucket row keyed by its start time.
func (r *StatusBucketRepo) Upsert(ctx context.Context, bucket *model.StatusBucket) error {
	const query = `
INSERT INTO status_buckets (
  bucket_start, queued, started, finished, average_start_ms, average_finish_ms, queue_depth, open
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (bucket_start) DO UPDATE SET
  queued = EXCLUDED.queued,
  started = EXCLUDED.started,
  finished = EXCLUDED.finished,
  average_start_ms = EXCLUDED.average_start_ms,
  average_finish_ms = EXCLUDED.average_finish_ms,
  queue_depth = EXCLUDED.queue_depth,
  open = EXCLUDED.open
`
	_, err := r.DB.ExecContext(ctx, query,
		bucket.BucketStart, bucket.Queued, bucket.Started, bucket.Finished,
		bucket.AverageStart, bucket.AverageFinish, bucket.QueueDepth, bucket.Open,
	)
	if err != nil {
		return dberrors.MapDBError(fmt.Errorf("upsert status bucket %s: %w", bucket.BucketStart, err))
	}
	return nil
}

func scanBucket(row rowScanner) (*model.StatusBucket, error) {
	var bucket model.StatusBucket
	err := row.Scan(
		&bucket.BucketStart, &bucket.Queued, &bucket.Started, &bucket.Finished,
		&bucket.AverageStart, &bucket.AverageFinish, &bucket.QueueDepth, &bucket.Open,
	)
	if err != nil {
		return nil, err
	}
	return &bucket, nil
}
