// Package model defines the core data types shared by every component of the
// scanning pipeline: the durable Job record, its HintResult entries, the
// sub-job unit of work placed on the jobs queue, and the ResultMessage
// emitted back onto the results queue.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// JobStatus is the status of a durable Job record.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusStarted  JobStatus = "started"
	JobStatusFinished JobStatus = "finished"
	JobStatusError    JobStatus = "error"
)

// Valid reports whether s is one of the closed set of job statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusStarted, JobStatusFinished, JobStatusError:
		return true
	default:
		return false
	}
}

// HintStatus is the status of a single HintResult.
type HintStatus string

const (
	HintStatusPending HintStatus = "pending"
	HintStatusPass    HintStatus = "pass"
	HintStatusWarning HintStatus = "warning"
	HintStatusError   HintStatus = "error"
	HintStatusOff     HintStatus = "off"
)

// severityRank orders non-pending, non-off statuses for bucket resolution:
// error outranks warning outranks pass.
var severityRank = map[HintStatus]int{
	HintStatusPass:    0,
	HintStatusWarning: 1,
	HintStatusError:   2,
}

// HigherSeverity returns whichever of a, b ranks higher under error > warning > pass.
// Statuses outside that set are treated as unranked and lose to any ranked status.
func HigherSeverity(a, b HintStatus) HintStatus {
	ra, oka := severityRank[a]
	rb, okb := severityRank[b]
	switch {
	case !oka && !okb:
		return a
	case !oka:
		return b
	case !okb:
		return a
	case ra >= rb:
		return a
	default:
		return b
	}
}

// ErrNoSubJobAvailable is returned by a Queue source when no sub-job is
// currently available and the caller should wait for a notification.
var ErrNoSubJobAvailable = errors.New("no sub-job available")

// HintMessage is a single finding reported against a hint.
type HintMessage struct {
	HintID   string `json:"hintId"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// HintResult is the per-hint outcome tracked on a Job and carried on a ResultMessage.
type HintResult struct {
	Name     string        `json:"name"`
	Status   HintStatus    `json:"status"`
	Messages []HintMessage `json:"messages,omitempty"`
}

// HintDirective is a configuration bundle's instruction for a single hint. It
// unmarshals either a bare severity string ("warning", "error", "off", ...)
// or a two-element tuple of [mode, options] such as ["off", {}].
type HintDirective struct {
	Mode    string
	Options json.RawMessage
}

// IsOff reports whether this directive turns the hint off.
func (d HintDirective) IsOff() bool {
	return d.Mode == string(HintStatusOff)
}

// UnmarshalJSON implements json.Unmarshaler for HintDirective's dual shape.
func (d *HintDirective) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("empty hint directive")
	}

	if trimmed[0] == '"' {
		var mode string
		if err := json.Unmarshal(trimmed, &mode); err != nil {
			return fmt.Errorf("decode hint directive string: %w", err)
		}
		d.Mode = mode
		d.Options = nil
		return nil
	}

	var tuple []json.RawMessage
	if err := json.Unmarshal(trimmed, &tuple); err != nil {
		return fmt.Errorf("decode hint directive tuple: %w", err)
	}
	if len(tuple) == 0 {
		return errors.New("hint directive tuple is empty")
	}
	var mode string
	if err := json.Unmarshal(tuple[0], &mode); err != nil {
		return fmt.Errorf("decode hint directive tuple mode: %w", err)
	}
	d.Mode = mode
	if len(tuple) > 1 {
		d.Options = tuple[1]
	} else {
		d.Options = nil
	}
	return nil
}

// MarshalJSON implements json.Marshaler for HintDirective's dual shape.
func (d HintDirective) MarshalJSON() ([]byte, error) {
	if d.Options == nil {
		return json.Marshal(d.Mode)
	}
	modeJSON, err := json.Marshal(d.Mode)
	if err != nil {
		return nil, err
	}
	return json.Marshal([]json.RawMessage{modeJSON, d.Options})
}

// ConfigBundle is one hint configuration slice; a Job carries an ordered
// sequence of these and dispatches exactly one sub-job per bundle.
type ConfigBundle struct {
	Hints map[string]HintDirective `json:"hints"`
}

// HintNames returns the hint names this bundle mentions.
func (b ConfigBundle) HintNames() []string {
	names := make([]string, 0, len(b.Hints))
	for name := range b.Hints {
		names = append(names, name)
	}
	return names
}

// PartInfo locates a sub-job within its parent job's configuration sequence.
type PartInfo struct {
	Part       int `json:"part"`
	TotalParts int `json:"totalParts"`
}

// JobError is the synthetic or propagated error payload carried by a Job or ResultMessage.
type JobError struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Job is the durable record tracked by the Sync Service and persisted by the job store.
type Job struct {
	ID            string         `json:"id"                      db:"id"`
	URL           string         `json:"url"                     db:"url"`
	Status        JobStatus      `json:"status"                  db:"status"`
	Hints         []HintResult   `json:"hints"                   db:"hints"`
	Config        []ConfigBundle `json:"config"                  db:"config"`
	MaxRunTime    int            `json:"maxRunTime,omitempty"    db:"max_run_time"`
	EngineVersion string         `json:"engineVersion,omitempty" db:"engine_version"`
	Error         *JobError      `json:"error,omitempty"         db:"error"`
	Queued        time.Time      `json:"queued"                  db:"queued_at"`
	Started       *time.Time     `json:"started,omitempty"       db:"started_at"`
	Finished      *time.Time     `json:"finished,omitempty"      db:"finished_at"`
	RequestedBy   string         `json:"requestedBy,omitempty"   db:"requested_by"`
	CreatedAt     time.Time      `json:"createdAt"               db:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt"                db:"updated_at"`
}

// ExpectedHintNames returns the union of hint names across the job's configuration
// bundles plus any hints already tracked on the record, per the invariant that a
// job's expected hint set never shrinks across its lifetime.
func (j *Job) ExpectedHintNames() []string {
	seen := make(map[string]bool)
	var ordered []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			ordered = append(ordered, name)
		}
	}
	for _, h := range j.Hints {
		add(h.Name)
	}
	for _, bundle := range j.Config {
		for _, name := range bundle.HintNames() {
			add(name)
		}
	}
	return ordered
}

// HintByName returns a pointer to the job's hint entry with the given name, or nil.
func (j *Job) HintByName(name string) *HintResult {
	for i := range j.Hints {
		if j.Hints[i].Name == name {
			return &j.Hints[i]
		}
	}
	return nil
}

// SubJob is a Job projection carrying exactly one configuration bundle; it is
// the unit of work placed on the jobs queue and consumed by the Worker Service.
type SubJob struct {
	ID         string         `json:"id"`
	URL        string         `json:"url"`
	PartInfo   PartInfo       `json:"partInfo"`
	Config     []ConfigBundle `json:"config"`
	Hints      []HintResult   `json:"hints"`
	MaxRunTime int            `json:"maxRunTime,omitempty"`
}

// Bundle returns the sub-job's single configuration bundle, per the contract that
// exactly one bundle (config[0]) accompanies every sub-job.
func (s *SubJob) Bundle() ConfigBundle {
	if len(s.Config) == 0 {
		return ConfigBundle{}
	}
	return s.Config[0]
}

// ResultMessage is the results-queue payload: a sub-job's hints populated by
// the engine, tagged with a terminal or in-flight status.
type ResultMessage struct {
	ID            string       `json:"id"`
	URL           string       `json:"url"`
	PartInfo      PartInfo     `json:"partInfo"`
	Hints         []HintResult `json:"hints,omitempty"`
	Status        JobStatus    `json:"status"`
	Error         *JobError    `json:"error,omitempty"`
	EngineVersion string       `json:"engineVersion,omitempty"`
	Started       *time.Time   `json:"started,omitempty"`
	Finished      *time.Time   `json:"finished,omitempty"`
}

// EngineMessage is a single finding as reported by the scan engine over IPC.
type EngineMessage struct {
	HintID   string `json:"hintId"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// EngineResponse is the single IPC response the Scan Runner sends to its parent.
// Error is kept raw because the contract allows either a bare string or a
// {message, stack} object.
type EngineResponse struct {
	OK       bool            `json:"ok"`
	Messages []EngineMessage `json:"messages,omitempty"`
	Error    json.RawMessage `json:"error,omitempty"`
}

// DecodeError normalises the response's Error field into a JobError, accepting
// either a bare string or a {message, stack} object.
func (r EngineResponse) DecodeError() *JobError {
	if len(r.Error) == 0 {
		return nil
	}
	var asString string
	if err := json.Unmarshal(r.Error, &asString); err == nil {
		return &JobError{Message: asString}
	}
	var asObject JobError
	if err := json.Unmarshal(r.Error, &asObject); err == nil {
		return &asObject
	}
	return &JobError{Message: string(r.Error)}
}
