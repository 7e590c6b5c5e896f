package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded template to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return r.writePlain("✓ Config written to %s\n", path)
}

// SetupWorkspace creates artifact directories and empty ledgers under data.root.
func (r *Runner) SetupWorkspace(ctx context.Context, cmd *cli.Command) error {
	ws := r.workspace()
	if err := ws.Init(fetchableEntities()...); err != nil {
		return err
	}
	r.logger.Info("workspace ready", "root", r.config.Data.Root)
	return r.writePlain("✓ Workspace initialized at %s\n", r.config.Data.Root)
}

// SetupDatabase initializes the database and runs migrations, or rolls back the latest one.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "driver", r.config.Database.Driver, "path", r.config.Database.Path)

	db, dialect, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db, dialect); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	} else {
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db, dialect); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Schema at version %d\n", version)
}
