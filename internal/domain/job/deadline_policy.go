// Package job holds pure decision logic shared by the pieces of the pipeline
// that dispatch and bound a sub-job's execution.
package job

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidDefaultRunTime indicates the configured default max run time is not positive.
var ErrInvalidDefaultRunTime = errors.New("default run time must be positive")

// RunTimeSource identifies how a sub-job's deadline was resolved.
type RunTimeSource string

const (
	// RunTimeExplicit indicates the sub-job carried a positive maxRunTime.
	RunTimeExplicit RunTimeSource = "explicit"
	// RunTimeDefault indicates the sub-job carried no maxRunTime and the worker's default was used.
	RunTimeDefault RunTimeSource = "default"
	// RunTimeClamped indicates the requested maxRunTime was clamped to the minimum supported value.
	RunTimeClamped RunTimeSource = "clamped"
)

// DeadlinePolicy normalises a sub-job's requested maxRunTime into the whole
// number of seconds the worker gives its Scan Runner child before it's
// terminated as timed out (§4.1 step 5).
type DeadlinePolicy struct {
	defaultRunTime time.Duration
}

// NewDeadlinePolicy constructs a DeadlinePolicy with the provided default run time,
// used for sub-jobs whose config specifies no maxRunTime.
func NewDeadlinePolicy(defaultRunTime time.Duration) (*DeadlinePolicy, error) {
	if defaultRunTime <= 0 {
		return nil, ErrInvalidDefaultRunTime
	}
	return &DeadlinePolicy{
		defaultRunTime: defaultRunTime,
	}, nil
}

// Default returns the configured default run time.
func (p *DeadlinePolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.defaultRunTime
}

// RunTimeDecision captures the outcome of resolving a sub-job's deadline.
type RunTimeDecision struct {
	Seconds   int
	Source    RunTimeSource
	Requested time.Duration
}

// UsedDefault reports whether the policy fell back to the worker's default run time.
func (d RunTimeDecision) UsedDefault() bool {
	return d.Source == RunTimeDefault
}

// Clamped reports whether the requested value was clamped to the minimum supported duration.
func (d RunTimeDecision) Clamped() bool {
	return d.Source == RunTimeClamped
}

// Resolve normalises the sub-job's requested maxRunTime to a whole number of
// seconds: a positive request is honored (clamped only if it rounds below
// one second or overflows), zero falls back to the worker's default, and a
// negative request is clamped to one second rather than rejected outright.
func (p *DeadlinePolicy) Resolve(request time.Duration) RunTimeDecision {
	if p == nil {
		return RunTimeDecision{Seconds: 0, Source: RunTimeDefault, Requested: request}
	}

	decision := RunTimeDecision{Requested: request}

	switch {
	case request > 0:
		seconds, clamped := durationToSeconds(request)
		decision.Seconds = seconds
		if clamped {
			decision.Source = RunTimeClamped
		} else {
			decision.Source = RunTimeExplicit
		}
		return decision
	case request == 0:
		seconds, _ := durationToSeconds(p.defaultRunTime)
		decision.Seconds = seconds
		decision.Source = RunTimeDefault
		return decision
	default:
		decision.Seconds = 1
		decision.Source = RunTimeClamped
		return decision
	}
}

func durationToSeconds(d time.Duration) (int, bool) {
	seconds := int64(d / time.Second)
	clamped := false

	if seconds <= 0 {
		seconds = 1
		clamped = true
	}

	maxSeconds := int64(math.MaxInt)
	if seconds > maxSeconds {
		seconds = maxSeconds
		clamped = true
	}

	return int(seconds), clamped
}
