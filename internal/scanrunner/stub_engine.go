package scanrunner

import (
	"context"

	"github.com/hintsweep/scanpipe/internal/domain/model"
)

// NoopEngine reports no findings for any hint. It satisfies Engine's
// contract and stands in for the real scanning library; cmd/scanrunner runs
// with it, so the binary as built reports no findings.
type NoopEngine struct{}

// Scan implements Engine.
func (NoopEngine) Scan(context.Context, model.SubJob) ([]model.EngineMessage, error) {
	return nil, nil
}

// Close implements Engine.
func (NoopEngine) Close() error { return nil }
