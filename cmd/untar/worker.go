package main

import (
	"context"
	"os"

	"github.com/go-logr/zapr"
	"github.com/infracollect/untar/internal/tarworker"
	"github.com/urfave/cli/v3"
)

// workerCommand is the child side of process workers: it reads one extract
// request on stdin and writes protocol messages on stdout.
var workerCommand = &cli.Command{
	Name:   "worker",
	Usage:  "Serve one extraction over stdin/stdout",
	Hidden: true,
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := loggerFrom(ctx).Named("worker")
		return tarworker.Serve(ctx, zapr.NewLogger(logger), os.Stdin, os.Stdout)
	},
}
