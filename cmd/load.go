package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// targetAll loads every registered target in dependency order.
const targetAll = "all"

// Load inserts cached artifacts for one target, or every target, into the store.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Args().Present() {
		return fmt.Errorf("%w: expected <target|all>", shared.ErrMissingArgument)
	}
	target := cmd.Args().First()

	workers := int(cmd.Int("workers"))
	if workers <= 0 {
		workers = r.config.Loader.Workers
	}
	if workers <= 0 {
		workers = tasks.DefaultWorkers
	}

	engine, cleanup, err := r.engine(false, true)
	defer cleanup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.serveMetrics(ctx)

	var summary any
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		if target == targetAll {
			summaries, lerr := engine.LoadAll(ctx, progress, workers)
			if len(summaries) > 0 {
				summary = summaries
			}
			return lerr
		}
		s, lerr := engine.Load(ctx, progress, tasks.LoadOpts{Target: target, Workers: workers})
		if s != nil {
			summary = s
		}
		return lerr
	})
	if summary != nil {
		if rerr := r.report(cmd, "Load "+target, summary); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}
