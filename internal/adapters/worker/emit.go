package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hintsweep/scanpipe/internal/core"
	"github.com/hintsweep/scanpipe/internal/domain/model"
	"github.com/hintsweep/scanpipe/internal/domain/scan"
)

// emit partitions msg to respect the configured MAX_MESSAGE_SIZE and sends
// every partition, each independently.
func (w *Worker) emit(ctx context.Context, msg model.ResultMessage) {
	for _, part := range scan.Partition(msg, w.cfg.MaxMessageSize) {
		w.sendOne(ctx, part)
	}
}

// sendOne sends a single, already-partitioned ResultMessage, retrying
// transient bus errors with bounded backoff and collapsing per-hint messages
// once on a reactive oversize signal before giving up on this message.
func (w *Worker) sendOne(ctx context.Context, msg model.ResultMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		w.cfg.Logger.Error("marshal result message", "job_id", msg.ID, "error", err)
		return
	}
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.Histogram("result.message_bytes", float64(len(payload)), map[string]string{"status": string(msg.Status)})
	}

	result, sendErr := w.sendWithBackoff(ctx, payload)
	switch result {
	case core.SendOK:
		return
	case core.SendOversize:
		collapsed := collapseAll(msg)
		retryPayload, merr := json.Marshal(collapsed)
		if merr != nil {
			w.cfg.Logger.Error("marshal collapsed result message", "job_id", msg.ID, "error", merr)
			return
		}
		retryResult, retryErr := w.cfg.ResultsQueue.Send(ctx, retryPayload)
		if retryResult != core.SendOK {
			w.cfg.Logger.Error("abandoning result after collapse retry",
				"job_id", msg.ID, "result", retryResult, "error", retryErr)
		}
	default:
		w.cfg.Logger.Error("abandoning result after send error", "job_id", msg.ID, "result", result, "error", sendErr)
	}
}

func (w *Worker) sendWithBackoff(ctx context.Context, payload []byte) (core.SendResult, error) {
	var result core.SendResult
	var sendErr error

	// Two retries after the first try: three attempts in all.
	policy := backoff.WithContext(backoff.WithMaxRetries(newSendBackoff(), 2), ctx)
	_ = backoff.Retry(func() error {
		result, sendErr = w.cfg.ResultsQueue.Send(ctx, payload)
		if result == core.SendTransient {
			return sendErr
		}
		return nil
	}, policy)

	return result, sendErr
}

func newSendBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// collapseAll replaces the messages of every hint that carries any with the
// single diagnostic entry, leaving hints without messages untouched. It runs
// after the bus itself rejected msg as oversize, whatever the worker's own
// size limit says about each hint.
func collapseAll(msg model.ResultMessage) model.ResultMessage {
	out := msg
	out.Hints = make([]model.HintResult, len(msg.Hints))
	for i, h := range msg.Hints {
		if len(h.Messages) > 0 {
			h.Messages = []model.HintMessage{{Message: scan.CollapsedMessage}}
		}
		out.Hints[i] = h
	}
	return out
}
