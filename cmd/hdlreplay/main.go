// Package main runs the hdlreplay CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/hdlreplay/internal/cli"
	"github.com/roach88/hdlreplay/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hdlreplay: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hdlreplay: %v\n", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
