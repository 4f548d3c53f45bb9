// Command scanrunner is the Scan Runner: a single-shot child process
// spawned once per sub-job by the Worker Service. It reads one sub-job as
// JSON from stdin, drives the scan engine against it, and writes exactly
// one EngineResponse as a single JSON line to stdout before exiting. It
// takes no flags or environment configuration of its own — every input it
// needs arrives over stdin with the sub-job.
package main

import (
	"context"
	"os"

	"github.com/hintsweep/scanpipe/internal/bootstrap"
	"github.com/hintsweep/scanpipe/internal/scanrunner"
)

func main() {
	logger := bootstrap.InitLogger()
	code := scanrunner.Run(context.Background(), os.Stdin, os.Stdout, scanrunner.NoopEngine{}, logger)
	os.Exit(code)
}
