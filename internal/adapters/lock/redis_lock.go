// Package lock implements core.Locker over Redis using the same atomic
// SET key value NX PX primitive the teacher uses for its cache's
// SetIfNotExists, scoped per-owner so only the acquirer can release a lease.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements core.Locker.
type Redis struct {
	client redis.UniversalClient
}

// New constructs a Redis-backed locker.
func New(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Lock attempts to atomically set name to owner with a TTL, succeeding only
// if name is not already held.
func (l *Redis) Lock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	status, err := l.client.SetArgs(ctx, name, owner, redis.SetArgs{Mode: "NX", TTL: ttl}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis lock SET NX: %w", err)
	}
	return status == "OK", nil
}

// unlockScript performs a compare-and-delete: only the holder identified by
// owner may release the lease, preventing a lock that outlived its TTL and
// was reacquired by another owner from being torn down by a stale holder.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// Unlock releases name if and only if owner currently holds it.
func (l *Redis) Unlock(ctx context.Context, name, owner string) error {
	if _, err := unlockScript.Run(ctx, l.client, []string{name}, owner).Result(); err != nil {
		return fmt.Errorf("redis unlock: %w", err)
	}
	return nil
}

// JobLockName derives the lock key for a job's per-record critical section.
func JobLockName(jobID string) string {
	return "job-lock:" + jobID
}
