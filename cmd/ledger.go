package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/cache"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// entityArgs parses "<entity> <id>..." positional arguments.
func entityArgs(cmd *cli.Command) (models.EntityType, []string, error) {
	if cmd.Args().Len() < 2 {
		return "", nil, fmt.Errorf("%w: expected <entity> <id>...", shared.ErrMissingArgument)
	}
	entity, err := models.ParseEntityType(cmd.Args().First())
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	if !entity.Fetchable() {
		return "", nil, fmt.Errorf("%w: %s has no ledger", shared.ErrInvalidArgument, entity)
	}
	return entity, cmd.Args().Tail(), nil
}

// fetchableEntities lists every entity that has a ledger.
func fetchableEntities() []models.EntityType {
	entities := []models.EntityType{}
	for _, e := range models.EntityTypes() {
		if e.Fetchable() {
			entities = append(entities, e)
		}
	}
	return entities
}

// LedgerAdd appends ids to an entity ledger, skipping duplicates.
func (r *Runner) LedgerAdd(ctx context.Context, cmd *cli.Command) error {
	entity, ids, err := entityArgs(cmd)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := cache.ValidateID(id); err != nil {
			return err
		}
	}

	ledger, err := r.workspace().Ledger(entity)
	if err != nil {
		return err
	}
	added := ledger.Add(ids...)
	if err := ledger.Save(); err != nil {
		return err
	}

	r.logger.Debug("ledger updated", "entity", entity, "added", added, "total", ledger.Len())
	return r.writePlain("✓ Added %d %s (%d queued)\n", added, entity, ledger.Len())
}

// LedgerRemove drops ids from an entity ledger.
func (r *Runner) LedgerRemove(ctx context.Context, cmd *cli.Command) error {
	entity, ids, err := entityArgs(cmd)
	if err != nil {
		return err
	}

	ledger, err := r.workspace().Ledger(entity)
	if err != nil {
		return err
	}
	removed := ledger.Remove(ids...)
	if err := ledger.Save(); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %d %s (%d queued)\n", removed, entity, ledger.Len())
}

// LedgerStatus prints ledger and cache counts for one or every entity.
func (r *Runner) LedgerStatus(ctx context.Context, cmd *cli.Command) error {
	entities := fetchableEntities()
	if cmd.Args().Present() {
		entity, err := models.ParseEntityType(cmd.Args().First())
		if err != nil {
			return err
		}
		entities = []models.EntityType{entity}
	}

	ws := r.workspace()
	statuses := make([]cache.Status, 0, len(entities))
	for _, entity := range entities {
		st, err := ws.Status(entity)
		if err != nil {
			return err
		}
		statuses = append(statuses, st)
	}

	if cmd.Bool("json") {
		return r.writeJSON(statuses, true)
	}
	r.printer.Statuses(statuses)
	return nil
}
