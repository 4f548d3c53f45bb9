package model

import "time"

// StatusBucket is a single quarter-hour aggregation window maintained by the
// Status Aggregator.
type StatusBucket struct {
	BucketStart   time.Time `db:"bucket_start"`
	Queued        int       `db:"queued"`
	Started       int       `db:"started"`
	Finished      int       `db:"finished"`
	AverageStart  int64     `db:"average_start_ms"`
	AverageFinish int64     `db:"average_finish_ms"`
	QueueDepth    int64     `db:"queue_depth"`
	Open          bool      `db:"open"`
}
