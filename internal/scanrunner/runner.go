// Package scanrunner implements the Scan Runner: a single-shot child
// process that reads one sub-job from stdin, drives the scan engine against
// it, and writes exactly one EngineResponse to stdout before exiting. It
// never keeps state across invocations — the worker spawns a fresh process
// per sub-job.
package scanrunner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/hintsweep/scanpipe/internal/domain/model"
)

// Engine is the black-box scanning library the Scan Runner drives. The
// pipeline core treats it as an opaque dependency: handed a sub-job, it
// returns whatever findings it produced.
type Engine interface {
	Scan(ctx context.Context, subJob model.SubJob) ([]model.EngineMessage, error)
	Close() error
}

type engineResult struct {
	messages []model.EngineMessage
	err      error
}

// Run executes the Scan Runner's single request/response contract: decode
// exactly one sub-job from r, run engine against it, encode exactly one
// EngineResponse to w. SIGTERM/SIGINT close the engine cleanly before Run
// returns. The return value is the process exit code.
func Run(ctx context.Context, r io.Reader, w io.Writer, engine Engine, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var subJob model.SubJob
	if err := json.NewDecoder(r).Decode(&subJob); err != nil {
		return writeFailure(w, logger, fmt.Errorf("decode sub-job: %w", err))
	}

	done := make(chan engineResult, 1)
	go func() {
		messages, err := engine.Scan(sigCtx, subJob)
		done <- engineResult{messages: messages, err: err}
	}()

	res := <-done
	_ = engine.Close()

	if res.err != nil {
		return writeFailure(w, logger, res.err)
	}
	return writeSuccess(w, logger, res.messages)
}

func writeSuccess(w io.Writer, logger *slog.Logger, messages []model.EngineMessage) int {
	if err := encode(w, model.EngineResponse{OK: true, Messages: messages}); err != nil {
		logger.Error("write scan runner response", "error", err)
		return 1
	}
	return 0
}

func writeFailure(w io.Writer, logger *slog.Logger, cause error) int {
	errPayload, _ := json.Marshal(model.JobError{Message: cause.Error()})
	if err := encode(w, model.EngineResponse{OK: false, Error: json.RawMessage(errPayload)}); err != nil {
		logger.Error("write scan runner failure response", "error", err)
	}
	return 1
}

func encode(w io.Writer, resp model.EngineResponse) error {
	bw := bufio.NewWriter(w)
	if err := json.NewEncoder(bw).Encode(resp); err != nil {
		return err
	}
	return bw.Flush()
}
