// Package main provides a CLI for replaying Lua viewer walkthroughs.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	walkthroughcmd "github.com/louisbranch/campuswalk/internal/cmd/walkthrough"
	platformcmd "github.com/louisbranch/campuswalk/internal/platform/cmd"
	"github.com/louisbranch/campuswalk/internal/platform/config"
)

func main() {
	cfg, err := walkthroughcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceWalkthrough, func(ctx context.Context) error {
		return walkthroughcmd.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}
