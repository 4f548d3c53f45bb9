// Package queue implements core.Queue over a Redis list, used as the
// message bus for both the jobs queue and the results queue. Enqueue is
// RPUSH; Listen is a blocking BLPOP loop. Oversize enforcement happens
// proactively in Send since Redis has no equivalent of an HTTP 413 to react
// to, matching the "explicit result type" design in SPEC_FULL.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hintsweep/scanpipe/internal/core"
)

// Redis implements core.Queue backed by a single list key.
type Redis struct {
	client         redis.UniversalClient
	key            string
	maxMessageSize int
	popTimeout     time.Duration
}

// Option configures a Redis queue.
type Option func(*Redis)

// WithPopTimeout overrides the BLPOP wait duration per poll (default 5s).
func WithPopTimeout(d time.Duration) Option {
	return func(r *Redis) { r.popTimeout = d }
}

// New constructs a queue bound to key, enforcing maxMessageSize on Send.
func New(client redis.UniversalClient, key string, maxMessageSize int, opts ...Option) *Redis {
	r := &Redis{
		client:         client,
		key:            key,
		maxMessageSize: maxMessageSize,
		popTimeout:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Send enqueues payload, reporting SendOversize without writing anything if
// payload exceeds the configured MAX_MESSAGE_SIZE.
func (r *Redis) Send(ctx context.Context, payload []byte) (core.SendResult, error) {
	if r.maxMessageSize > 0 && len(payload) > r.maxMessageSize {
		return core.SendOversize, nil
	}
	if err := r.client.RPush(ctx, r.key, payload).Err(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return core.SendTransient, err
		}
		return core.SendTransient, fmt.Errorf("redis rpush %s: %w", r.key, err)
	}
	return core.SendOK, nil
}

// MessagesCount reports the current list length.
func (r *Redis) MessagesCount(ctx context.Context) (int64, error) {
	n, err := r.client.LLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen %s: %w", r.key, err)
	}
	return n, nil
}

// Listen blocks popping messages and invoking handler for each, until ctx is
// canceled. A Redis error other than a poll timeout or cancellation ends
// Listen, and so does a handler error; either is returned wrapped.
func (r *Redis) Listen(ctx context.Context, handler func(context.Context, []byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		result, err := r.client.BLPop(ctx, r.popTimeout, r.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // timed out waiting, no message available
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("redis blpop %s: %w", r.key, err)
		}

		// BLPop returns [key, value].
		if len(result) != 2 {
			continue
		}
		if err := handler(ctx, []byte(result[1])); err != nil {
			return fmt.Errorf("handle message from %s: %w", r.key, err)
		}
	}
}
