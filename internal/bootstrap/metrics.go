package bootstrap

import (
	"log/slog"

	"github.com/hintsweep/scanpipe/config"
	"github.com/hintsweep/scanpipe/internal/observability/statsd"
)

// BuildMetricsSink wires the StatsD client shared by every binary. It
// returns a safely-disabled client (every call a no-op) when metrics are
// turned off or no address is configured.
func BuildMetricsSink(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	return statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  "scanpipe",
		Logger:  logger,
	})
}
