// Package config defines environment-driven configuration for the worker,
// sync and status aggregator binaries (the scan runner takes none), loaded with github.com/caarlos0/env the way the
// rest of the stack does.
package config

import (
	"os"
	"strings"
	"time"
)

// Shared is the configuration common to every binary: the job store, the
// message bus, and observability.
type Shared struct {
	IsDev bool `env:"DEV" envDefault:"false"`

	Postgres      DBConfig                   `envPrefix:"DB_"`
	Queue         QueueConfig                `envPrefix:"QUEUE_"`
	Clock         ClockConfig
	Observability ObservabilityMetricsConfig
}

// Sanitize applies guardrails to shared configuration values loaded from env.
func (c *Shared) Sanitize() {
	c.Queue.Sanitize()
	c.Observability.Sanitize()
	c.detectDevMode()
}

func (c *Shared) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// WorkerConfig is the cmd/worker configuration.
type WorkerConfig struct {
	Shared

	Concurrency     int           `env:"WORKER_CONCURRENCY"      envDefault:"1"`
	DefaultRunTime  time.Duration `env:"WORKER_DEFAULT_RUN_TIME" envDefault:"5m"`
	ScanRunnerPath  string        `env:"SCANRUNNER_PATH"         envDefault:"./scanrunner"`
	EngineVersion   string        `env:"WORKER_ENGINE_VERSION"   envDefault:"unknown"`
}

// Sanitize applies guardrails to worker configuration values.
func (c *WorkerConfig) Sanitize() {
	c.Shared.Sanitize()
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.DefaultRunTime <= 0 {
		c.DefaultRunTime = 5 * time.Minute
	}
}

// SyncConfig is the cmd/sync configuration.
type SyncConfig struct {
	Shared

	LockTTL time.Duration `env:"SYNC_LOCK_TTL" envDefault:"30s"`
}

// Sanitize applies guardrails to sync configuration values.
func (c *SyncConfig) Sanitize() {
	c.Shared.Sanitize()
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Second
	}
}

// StatusAggregatorConfig is the cmd/statusaggregator configuration.
type StatusAggregatorConfig struct {
	Shared

	Interval time.Duration `env:"STATUSAGG_INTERVAL" envDefault:"15m"`
}

// Sanitize applies guardrails to status aggregator configuration values.
func (c *StatusAggregatorConfig) Sanitize() {
	c.Shared.Sanitize()
	if c.Interval <= 0 {
		c.Interval = 15 * time.Minute
	}
}

// ClockConfig configures the optional NTP-backed clock shared by every binary.
type ClockConfig struct {
	NTPServer   string        `env:"CLOCK_NTP_SERVER"`
	NTPInterval time.Duration `env:"CLOCK_NTP_INTERVAL" envDefault:"5m"`
}

// Enabled reports whether an NTP server was configured.
func (c ClockConfig) Enabled() bool {
	return strings.TrimSpace(c.NTPServer) != ""
}
