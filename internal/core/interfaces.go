// Package core defines the ports of the pipeline: the narrow interfaces the
// Worker, Sync, and Status Aggregator services depend on, implemented by
// concrete adapters under internal/adapters and internal/data.
package core

import (
	"context"
	"time"

	"github.com/hintsweep/scanpipe/internal/domain/model"
)

// SendResult is the outcome of a single Queue.Send call, replacing the
// exception-driven control flow of a bus client with an explicit result type.
// Only Oversize is expected to trigger the per-hint collapse retry path.
type SendResult int

const (
	SendOK SendResult = iota
	SendOversize
	SendTransient
	SendFatal
)

// Queue is a typed wrapper over the message bus. It carries raw payload
// bytes; callers (the Worker and Sync services) own marshaling their
// SubJob/ResultMessage values, which keeps the same Queue implementation
// usable for both the jobs and results queues.
type Queue interface {
	// Listen installs handler to receive messages and blocks until ctx is
	// canceled or the underlying subscription fails fatally.
	Listen(ctx context.Context, handler func(context.Context, []byte) error) error
	// Send publishes payload and classifies the outcome. err is non-nil only
	// for SendTransient and SendFatal.
	Send(ctx context.Context, payload []byte) (SendResult, error)
	// MessagesCount reports the current depth of the queue, used by the
	// Status Aggregator for its open-bucket snapshot.
	MessagesCount(ctx context.Context) (int64, error)
}

//go:generate go run go.uber.org/mock/mockgen -destination=locker_mock.go -package=core github.com/hintsweep/scanpipe/internal/core Locker

// Locker is a named, owner-scoped, TTL'd distributed lease.
type Locker interface {
	// Lock attempts to acquire name for owner for the given TTL. It does not
	// block; ok is false if another owner currently holds the lease.
	Lock(ctx context.Context, name, owner string, ttl time.Duration) (ok bool, err error)
	// Unlock releases name if and only if owner currently holds it.
	Unlock(ctx context.Context, name, owner string) error
}

// Clock is a mockable source of wall-clock time, used for started/finished
// stamps so tests can inject deterministic values.
type Clock interface {
	Now() time.Time
}

// JobRepository persists the durable Job record.
type JobRepository interface {
	GetByID(ctx context.Context, id string) (*model.Job, error)
	Upsert(ctx context.Context, job *model.Job) error
	ListQueuedBetween(ctx context.Context, start, end time.Time) ([]*model.Job, error)
	ListStartedBetween(ctx context.Context, start, end time.Time) ([]*model.Job, error)
	ListFinishedBetween(ctx context.Context, start, end time.Time) ([]*model.Job, error)
}

// AggregateRepository persists the Status Aggregator's quarter-hour bucket rows.
type AggregateRepository interface {
	Latest(ctx context.Context) (*model.StatusBucket, error)
	Upsert(ctx context.Context, bucket *model.StatusBucket) error
}
