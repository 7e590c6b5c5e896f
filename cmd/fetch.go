package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Fetch downloads every uncached id in an entity ledger.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Args().Present() {
		return fmt.Errorf("%w: expected <entity>", shared.ErrMissingArgument)
	}
	entity, err := models.ParseEntityType(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	engine, cleanup, err := r.engine(true, false)
	defer cleanup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.serveMetrics(ctx)

	opts := tasks.FetchOpts{
		Entity:    entity,
		Batch:     cmd.Bool("batch"),
		BatchSize: int(cmd.Int("batch-size")),
	}

	var summary *tasks.FetchSummary
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var ferr error
		summary, ferr = engine.Fetch(ctx, progress, opts)
		return ferr
	})
	if summary != nil {
		if rerr := r.report(cmd, "Fetch "+entity.String(), summary); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}
