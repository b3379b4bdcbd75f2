// Package main is the entry point for the edgeforge CLI.
//
// edgeforge deploys machine learning models to AWS IoT Greengrass devices.
// It compiles and packages a registered model with SageMaker, publishes it as
// a Greengrass component and rolls it out to a core device, checkpointing
// every step so an interrupted run can be resumed.
//
// Commands: init, validate, run, resume, status, version, completion.
//
// For detailed usage information, run:
//
//	edgeforge --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/edgeforge/cmd/edgeforge/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
