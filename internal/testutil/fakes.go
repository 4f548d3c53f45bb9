package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hintsweep/scanpipe/internal/core"
	"github.com/hintsweep/scanpipe/internal/domain/model"
)

// FakeClock is a settable core.Clock for deterministic tests.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock constructs a FakeClock fixed at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now returns the current fixed time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// FakeQueue is an in-memory core.Queue backed by a slice, FIFO, with no
// network round-trip, used to exercise Worker/Sync wiring without Redis.
type FakeQueue struct {
	mu             sync.Mutex
	messages       [][]byte
	maxMessageSize int
	sendErr        error
}

// NewFakeQueue constructs an empty in-memory queue. maxMessageSize of 0 means unbounded.
func NewFakeQueue(maxMessageSize int) *FakeQueue {
	return &FakeQueue{maxMessageSize: maxMessageSize}
}

// SetSendErr makes every subsequent Send fail with SendTransient and err, to
// exercise the Worker's send retry path.
func (q *FakeQueue) SetSendErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sendErr = err
}

// Send appends payload to the tail, reporting SendOversize without storing
// anything when payload exceeds the configured size.
func (q *FakeQueue) Send(_ context.Context, payload []byte) (core.SendResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sendErr != nil {
		return core.SendTransient, q.sendErr
	}
	if q.maxMessageSize > 0 && len(payload) > q.maxMessageSize {
		return core.SendOversize, nil
	}
	q.messages = append(q.messages, payload)
	return core.SendOK, nil
}

// MessagesCount reports the current queue depth.
func (q *FakeQueue) MessagesCount(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.messages)), nil
}

// Listen pops and hands every currently queued message to handler, then
// blocks until ctx is canceled, polling for newly Send'd messages.
func (q *FakeQueue) Listen(ctx context.Context, handler func(context.Context, []byte) error) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				msg, ok := q.pop()
				if !ok {
					break
				}
				if err := handler(ctx, msg); err != nil {
					return err
				}
			}
		}
	}
}

func (q *FakeQueue) pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return nil, false
	}
	msg := q.messages[0]
	q.messages = q.messages[1:]
	return msg, true
}

// Drain synchronously removes and returns every currently queued message,
// for tests asserting on what a component sent without running Listen.
func (q *FakeQueue) Drain() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.messages
	q.messages = nil
	return out
}

// FakeLocker is an in-memory core.Locker, mirroring Redis compare-and-delete
// unlock semantics without a server round-trip.
type FakeLocker struct {
	mu    sync.Mutex
	held  map[string]string
	until map[string]time.Time
	clock core.Clock
}

// NewFakeLocker constructs an empty in-memory locker. clock may be nil, in
// which case leases never expire on their own (tests release explicitly).
func NewFakeLocker(clock core.Clock) *FakeLocker {
	return &FakeLocker{held: make(map[string]string), until: make(map[string]time.Time), clock: clock}
}

// Lock acquires name for owner if unheld or expired.
func (l *FakeLocker) Lock(_ context.Context, name, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if holder, ok := l.held[name]; ok {
		if l.clock == nil || l.clock.Now().Before(l.until[name]) {
			return holder == owner, nil
		}
	}
	l.held[name] = owner
	if l.clock != nil {
		l.until[name] = l.clock.Now().Add(ttl)
	}
	return true, nil
}

// Unlock releases name only if owner currently holds it.
func (l *FakeLocker) Unlock(_ context.Context, name, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] == owner {
		delete(l.held, name)
		delete(l.until, name)
	}
	return nil
}

// FakeJobRepository is an in-memory core.JobRepository keyed by job ID.
type FakeJobRepository struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

// NewFakeJobRepository constructs an empty in-memory job store.
func NewFakeJobRepository() *FakeJobRepository {
	return &FakeJobRepository{jobs: make(map[string]*model.Job)}
}

// GetByID returns a copy of the stored job, or model.ErrNoSubJobAvailable if absent.
func (r *FakeJobRepository) GetByID(_ context.Context, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, model.ErrNoSubJobAvailable
	}
	clone := *job
	return &clone, nil
}

// Upsert stores a copy of job keyed by its ID.
func (r *FakeJobRepository) Upsert(_ context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

// ListQueuedBetween returns stored jobs with Queued in [start, end).
func (r *FakeJobRepository) ListQueuedBetween(_ context.Context, start, end time.Time) ([]*model.Job, error) {
	return r.listBetween(start, end, func(j *model.Job) *time.Time { return &j.Queued }), nil
}

// ListStartedBetween returns stored jobs with Started in [start, end).
func (r *FakeJobRepository) ListStartedBetween(_ context.Context, start, end time.Time) ([]*model.Job, error) {
	return r.listBetween(start, end, func(j *model.Job) *time.Time { return j.Started }), nil
}

// ListFinishedBetween returns stored jobs with Finished in [start, end).
func (r *FakeJobRepository) ListFinishedBetween(_ context.Context, start, end time.Time) ([]*model.Job, error) {
	return r.listBetween(start, end, func(j *model.Job) *time.Time { return j.Finished }), nil
}

func (r *FakeJobRepository) listBetween(start, end time.Time, field func(*model.Job) *time.Time) []*model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Job
	for _, job := range r.jobs {
		ts := field(job)
		if ts == nil || ts.Before(start) || !ts.Before(end) {
			continue
		}
		clone := *job
		out = append(out, &clone)
	}
	return out
}
