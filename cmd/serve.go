package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spx/internal/server"
	"github.com/urfave/cli/v3"
)

const defaultServeAddr = ":9464"

// Serve blocks serving the status router until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Telemetry.MetricsAddr
	}
	if addr == "" {
		addr = defaultServeAddr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, addr, server.New(r.workspace(), r.logger), r.logger)
}
