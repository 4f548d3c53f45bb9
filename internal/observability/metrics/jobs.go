package metrics

import (
	"time"

	obserrors "github.com/hintsweep/scanpipe/internal/observability/errors"
	"github.com/hintsweep/scanpipe/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// JobMetric captures details about a sub-job lifecycle transition for
// metric emission.
type JobMetric struct {
	Status     string
	Transition string
	Result     string
	Duration   time.Duration
	HintCount  int
	Err        error
}

// EmitJobLifecycle emits standardised sub-job lifecycle metrics: a counter
// per transition, a timing once it has a duration, and a histogram of how
// many hints the sub-job carried once that's known.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"status":     in.Status,
		"transition": in.Transition,
		"result":     in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
	if in.HintCount > 0 {
		sink.Histogram("job.hint_count", float64(in.HintCount), CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
