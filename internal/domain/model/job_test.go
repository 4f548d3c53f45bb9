package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_Valid(t *testing.T) {
	assert.True(t, JobStatusPending.Valid())
	assert.True(t, JobStatusStarted.Valid())
	assert.True(t, JobStatusFinished.Valid())
	assert.True(t, JobStatusError.Valid())
	assert.False(t, JobStatus("unknown").Valid())
}

func TestHigherSeverity(t *testing.T) {
	tests := []struct {
		name string
		a, b HintStatus
		want HintStatus
	}{
		{name: "error beats warning", a: HintStatusError, b: HintStatusWarning, want: HintStatusError},
		{name: "warning beats pass", a: HintStatusWarning, b: HintStatusPass, want: HintStatusWarning},
		{name: "symmetric", a: HintStatusPass, b: HintStatusError, want: HintStatusError},
		{name: "unranked loses to ranked", a: HintStatusPending, b: HintStatusPass, want: HintStatusPass},
		{name: "both unranked keeps a", a: HintStatusPending, b: HintStatusOff, want: HintStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HigherSeverity(tt.a, tt.b))
		})
	}
}

func TestHintDirective_UnmarshalJSON_BareString(t *testing.T) {
	var d HintDirective
	require.NoError(t, json.Unmarshal([]byte(`"warning"`), &d))
	assert.Equal(t, "warning", d.Mode)
	assert.Nil(t, d.Options)
	assert.False(t, d.IsOff())
}

func TestHintDirective_UnmarshalJSON_Tuple(t *testing.T) {
	var d HintDirective
	require.NoError(t, json.Unmarshal([]byte(`["off", {"reason":"noisy"}]`), &d))
	assert.Equal(t, "off", d.Mode)
	assert.JSONEq(t, `{"reason":"noisy"}`, string(d.Options))
	assert.True(t, d.IsOff())
}

func TestHintDirective_UnmarshalJSON_EmptyTuple(t *testing.T) {
	var d HintDirective
	err := json.Unmarshal([]byte(`[]`), &d)
	require.Error(t, err)
}

func TestHintDirective_UnmarshalJSON_Empty(t *testing.T) {
	var d HintDirective
	err := json.Unmarshal([]byte(``), &d)
	require.Error(t, err)
}

func TestHintDirective_MarshalJSON_RoundTrip(t *testing.T) {
	d := HintDirective{Mode: "warning"}
	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"warning"`, string(out))

	var back HintDirective
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, d, back)
}

func TestHintDirective_MarshalJSON_WithOptions(t *testing.T) {
	d := HintDirective{Mode: "off", Options: json.RawMessage(`{"reason":"noisy"}`)}
	out, err := json.Marshal(d)
	require.NoError(t, err)

	var tuple []json.RawMessage
	require.NoError(t, json.Unmarshal(out, &tuple))
	require.Len(t, tuple, 2)
}

func TestConfigBundle_HintNames(t *testing.T) {
	bundle := ConfigBundle{Hints: map[string]HintDirective{
		"cookies": {Mode: "warning"},
		"headers": {Mode: "error"},
	}}
	assert.ElementsMatch(t, []string{"cookies", "headers"}, bundle.HintNames())
}

func TestJob_ExpectedHintNames_UnionIsStable(t *testing.T) {
	job := &Job{
		Hints: []HintResult{{Name: "cookies", Status: HintStatusPass}},
		Config: []ConfigBundle{
			{Hints: map[string]HintDirective{"cookies": {Mode: "warning"}, "headers": {Mode: "error"}}},
		},
	}

	names := job.ExpectedHintNames()
	assert.Contains(t, names, "cookies")
	assert.Contains(t, names, "headers")
	assert.Equal(t, "cookies", names[0], "hints already tracked on the record come first")
}

func TestJob_HintByName(t *testing.T) {
	job := &Job{Hints: []HintResult{{Name: "cookies", Status: HintStatusPass}}}

	got := job.HintByName("cookies")
	require.NotNil(t, got)
	assert.Equal(t, HintStatusPass, got.Status)

	assert.Nil(t, job.HintByName("missing"))
}

func TestSubJob_Bundle(t *testing.T) {
	sj := &SubJob{Config: []ConfigBundle{{Hints: map[string]HintDirective{"cookies": {Mode: "warning"}}}}}
	bundle := sj.Bundle()
	assert.Equal(t, []string{"cookies"}, bundle.HintNames())

	empty := &SubJob{}
	assert.Equal(t, ConfigBundle{}, empty.Bundle())
}

func TestEngineResponse_DecodeError(t *testing.T) {
	tests := []struct {
		name string
		raw  json.RawMessage
		want *JobError
	}{
		{name: "no error", raw: nil, want: nil},
		{name: "bare string", raw: json.RawMessage(`"boom"`), want: &JobError{Message: "boom"}},
		{
			name: "object",
			raw:  json.RawMessage(`{"message":"boom","stack":"trace"}`),
			want: &JobError{Message: "boom", Stack: "trace"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := EngineResponse{Error: tt.raw}
			assert.Equal(t, tt.want, resp.DecodeError())
		})
	}
}
