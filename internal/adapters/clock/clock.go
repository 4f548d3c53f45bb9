// Package clock provides the Clock implementations used across the pipeline:
// a thin system-time wrapper for production defaults and tests, and an
// NTP-backed source for the monotonic-checked wall clock the component table
// names explicitly.
package clock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

// System wraps time.Now and is the default Clock implementation.
type System struct{}

// Now returns the current system time.
func (System) Now() time.Time { return time.Now() }

// NTP periodically queries an NTP server and applies the resulting offset to
// time.Now(), so that started/finished stamps stay correct even when the host
// clock drifts. It falls back to the last-known offset (or zero) whenever a
// query fails, so a transient NTP outage degrades to System behavior rather
// than failing callers.
type NTP struct {
	server string
	logger *slog.Logger

	mu     sync.RWMutex
	offset time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewNTP constructs an NTP clock that refreshes its offset against server
// every interval, performing one synchronous query before returning so the
// first Now() call already reflects the offset.
func NewNTP(ctx context.Context, server string, interval time.Duration, logger *slog.Logger) *NTP {
	if logger == nil {
		logger = slog.Default()
	}
	c := &NTP{
		server: server,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.refresh(ctx)
	go c.loop(ctx, interval)
	return c
}

// Now returns the system time adjusted by the most recently observed NTP offset.
func (c *NTP) Now() time.Time {
	c.mu.RLock()
	offset := c.offset
	c.mu.RUnlock()
	return time.Now().Add(offset)
}

// Close stops the background refresh loop.
func (c *NTP) Close() {
	close(c.stop)
	<-c.done
}

func (c *NTP) loop(ctx context.Context, interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *NTP) refresh(ctx context.Context) {
	resp, err := ntp.QueryWithOptions(c.server, ntp.QueryOptions{Timeout: 5 * time.Second})
	if err != nil {
		c.logger.WarnContext(ctx, "ntp query failed, keeping last known offset", "server", c.server, "err", err)
		return
	}
	c.mu.Lock()
	c.offset = resp.ClockOffset
	c.mu.Unlock()
}
