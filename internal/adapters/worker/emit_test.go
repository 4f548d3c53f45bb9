package worker_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hintsweep/scanpipe/internal/adapters/worker"
	"github.com/hintsweep/scanpipe/internal/core"
	"github.com/hintsweep/scanpipe/internal/domain/model"
	"github.com/hintsweep/scanpipe/internal/domain/scan"
	"github.com/hintsweep/scanpipe/internal/testutil"
)

// Scenario 3: the results bus rejects the terminal message as oversize once
// two engine messages push it past the queue's own limit; the worker
// collapses axe's messages and resends, and that resend is final.
func TestProcess_OversizeRetryCollapsesAndResends(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(1000, 0))
	jobs := testutil.NewFakeQueue(0)
	// Worker's own MAX_MESSAGE_SIZE is generous so Partition emits one
	// message; the queue transport itself enforces a much tighter cap,
	// modelling a reactive 413 the worker only learns about on Send.
	results := testutil.NewFakeQueue(400)

	big := strings.Repeat("x", 200)
	messages := []model.EngineMessage{
		{HintID: "axe", Message: big},
		{HintID: "axe", Message: big},
	}
	runner := &fakeRunner{result: worker.ChildResult{Response: &model.EngineResponse{OK: true, Messages: messages}}}

	w, err := worker.New(worker.Config{
		JobsQueue: jobs, ResultsQueue: results, Clock: clock, Children: runner,
		Concurrency: 1, DefaultRunTime: 5 * time.Second, MaxMessageSize: 1 << 20,
	})
	require.NoError(t, err)

	sj := model.SubJob{
		ID: "job-5", URL: "https://example.com",
		Config: []model.ConfigBundle{{Hints: map[string]model.HintDirective{"axe": {Mode: "error"}}}},
		Hints:  []model.HintResult{{Name: "axe", Status: model.HintStatusPending}},
	}

	msgs := runOneSubJob(t, w, jobs, results, sj, 300*time.Millisecond)

	// started + the final collapsed terminal; the oversize first attempt
	// never lands on the queue, so only two messages are ever observed here.
	require.Len(t, msgs, 2)
	terminal := msgs[1]
	assert.Equal(t, model.JobStatusFinished, terminal.Status)
	require.Len(t, terminal.Hints, 1)
	require.Len(t, terminal.Hints[0].Messages, 1)
	assert.Equal(t, scan.CollapsedMessage, terminal.Hints[0].Messages[0].Message)
}

// sendCountingQueue wraps a FakeQueue and counts every Send attempt made
// against it.
type sendCountingQueue struct {
	*testutil.FakeQueue
	sends atomic.Int32
}

func (q *sendCountingQueue) Send(ctx context.Context, payload []byte) (core.SendResult, error) {
	q.sends.Add(1)
	return q.FakeQueue.Send(ctx, payload)
}

// A non-oversize queue error is retried with backoff and, after exhaustion,
// the sub-job is abandoned on the output side rather than blocking forever.
func TestSendOne_TransientErrorExhaustsRetriesAndDropsMessage(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(1000, 0))
	jobs := testutil.NewFakeQueue(0)
	results := &sendCountingQueue{FakeQueue: testutil.NewFakeQueue(0)}
	results.SetSendErr(assertError("bus unavailable"))
	runner := &fakeRunner{result: worker.ChildResult{Response: &model.EngineResponse{OK: true}}}

	w, err := worker.New(worker.Config{
		JobsQueue: jobs, ResultsQueue: results, Clock: clock, Children: runner,
		Concurrency: 1, DefaultRunTime: 5 * time.Second, MaxMessageSize: 1 << 20,
	})
	require.NoError(t, err)

	sj := model.SubJob{
		ID: "job-6", URL: "https://example.com",
		Config: []model.ConfigBundle{{Hints: map[string]model.HintDirective{"axe": {Mode: "error"}}}},
		Hints:  []model.HintResult{{Name: "axe", Status: model.HintStatusPending}},
	}

	msgs := runOneSubJob(t, w, jobs, results.FakeQueue, sj, 3*time.Second)

	// started and terminal are each tried three times, then dropped.
	assert.Equal(t, int32(6), results.sends.Load())
	assert.Empty(t, msgs)
}
