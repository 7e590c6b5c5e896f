package main

import (
	"context"

	"github.com/desertthunder/spx/internal/tasks"
	"github.com/urfave/cli/v3"
)

type harvestFunc func(*tasks.Engine, context.Context, chan<- tasks.ProgressUpdate) (*tasks.HarvestSummary, error)

// HarvestPlaylists queues ids referenced by cached playlists.
func (r *Runner) HarvestPlaylists(ctx context.Context, cmd *cli.Command) error {
	return r.harvest(ctx, cmd, "Harvest playlists", (*tasks.Engine).HarvestPlaylists)
}

// HarvestArtists queues artists credited on cached tracks and albums.
func (r *Runner) HarvestArtists(ctx context.Context, cmd *cli.Command) error {
	return r.harvest(ctx, cmd, "Harvest artists", (*tasks.Engine).HarvestArtists)
}

// HarvestChapters splits cached audiobooks into chapter artifacts.
func (r *Runner) HarvestChapters(ctx context.Context, cmd *cli.Command) error {
	return r.harvest(ctx, cmd, "Harvest chapters", (*tasks.Engine).HarvestChapters)
}

func (r *Runner) harvest(ctx context.Context, cmd *cli.Command, title string, fn harvestFunc) error {
	engine, cleanup, err := r.engine(false, false)
	defer cleanup()
	if err != nil {
		return err
	}

	var summary *tasks.HarvestSummary
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var herr error
		summary, herr = fn(engine, ctx, progress)
		return herr
	})
	if summary != nil {
		if rerr := r.report(cmd, title, summary); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}
