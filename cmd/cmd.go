// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/urfave/cli/v3"
)

// reportFlags are shared by every command that produces a run summary.
func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the run summary as JSON",
		},
		&cli.StringFlag{
			Name:    "report",
			Aliases: []string{"o"},
			Usage:   "Write the run summary to a file",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Report file format (json, csv or txt)",
			Value: formatter.FormatJSON,
		},
	}
}

func entityNames() string {
	names := []string{}
	for _, e := range models.EntityTypes() {
		names = append(names, e.String())
	}
	return strings.Join(names, ", ")
}

// setupCommand handles setup operations for configuration, workspace and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "workspace",
				Usage:  "Create the artifact directories and empty ledgers",
				Action: r.SetupWorkspace,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the client-credentials lease
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the API access lease",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the persisted lease and when it expires",
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange client credentials for a new lease",
				Action: r.AuthRefresh,
			},
		},
	}
}

// ledgerCommand manages the per-entity id ledgers
func ledgerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Manage id ledgers",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Queue ids for an entity (" + entityNames() + ")",
				ArgsUsage: "<entity> <id>...",
				Action:    r.LedgerAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Drop ids from an entity ledger",
				ArgsUsage: "<entity> <id>...",
				Action:    r.LedgerRemove,
			},
			{
				Name:      "status",
				Aliases:   []string{"show"},
				Usage:     "Show ledger and cache counts",
				ArgsUsage: "[entity]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LedgerStatus,
			},
		},
	}
}

// fetchCommand downloads ledger entries into the artifact cache
func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch uncached ledger ids from the catalog API",
		ArgsUsage: "<entity>",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "batch",
				Aliases: []string{"b"},
				Usage:   "Use the multi-id endpoint where the entity supports it",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Ids per batch request, capped by the entity maximum",
			},
		}, reportFlags()...),
		Action: r.Fetch,
	}
}

// harvestCommand discovers new ids from cached artifacts
func harvestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "harvest",
		Usage: "Discover referenced ids in cached artifacts",
		Commands: []*cli.Command{
			{
				Name:   "playlists",
				Usage:  "Queue tracks, albums and artists referenced by cached playlists",
				Flags:  reportFlags(),
				Action: r.HarvestPlaylists,
			},
			{
				Name:   "artists",
				Usage:  "Queue artists credited on cached tracks and albums",
				Flags:  reportFlags(),
				Action: r.HarvestArtists,
			},
			{
				Name:   "chapters",
				Usage:  "Extract embedded chapters from cached audiobooks",
				Flags:  reportFlags(),
				Action: r.HarvestChapters,
			},
		},
	}
}

// loadCommand inserts cached artifacts into the relational store
func loadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "Load cached artifacts into the database",
		ArgsUsage: "<target|all>",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Concurrent loader workers (defaults to loader.workers)",
			},
		}, reportFlags()...),
		Action: r.Load,
	}
}

// serveCommand runs the status endpoint in the foreground
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve /status, /healthz and /metrics until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to telemetry.metrics_addr, then :9464)",
			},
		},
		Action: r.Serve,
	}
}
