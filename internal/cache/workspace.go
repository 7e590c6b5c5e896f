package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/spx/internal/models"
)

// Workspace is the data root holding every entity's ledger and artifacts.
type Workspace struct {
	*Store
}

// NewWorkspace returns the workspace rooted at root.
func NewWorkspace(root string) *Workspace {
	return &Workspace{Store: NewStore(root)}
}

// Init creates the items directory and an empty ledger for each entity that lacks them.
func (w *Workspace) Init(entities ...models.EntityType) error {
	if len(entities) == 0 {
		entities = models.EntityTypes()
	}

	for _, entity := range entities {
		if err := os.MkdirAll(w.Dir(entity), 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", entity, err)
		}

		path := w.LedgerPath(entity)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := NewLedger(path).Save(); err != nil {
				return err
			}
		} else if err != nil {
			return fmt.Errorf("failed to stat %s ledger: %w", entity, err)
		}
	}
	return nil
}

// LedgerPath returns the ledger file for entity.
func (w *Workspace) LedgerPath(entity models.EntityType) string {
	return filepath.Join(w.Root(), string(entity), ledgerFile)
}

// Ledger loads entity's ledger.
func (w *Workspace) Ledger(entity models.EntityType) (*Ledger, error) {
	return LoadLedger(w.LedgerPath(entity))
}

// Status summarises one entity's ledger against its cache.
type Status struct {
	Entity    models.EntityType `json:"entity"`
	Ledger    int               `json:"ledger"`
	Cached    int               `json:"cached"`
	Pending   int               `json:"pending"`
	Artifacts int               `json:"artifacts"`
}

// Status reports how many ledger ids of entity are cached and how many are pending.
func (w *Workspace) Status(entity models.EntityType) (Status, error) {
	ledger, err := w.Ledger(entity)
	if err != nil {
		return Status{}, err
	}
	artifacts, err := w.IDs(entity)
	if err != nil {
		return Status{}, err
	}

	st := Status{Entity: entity, Ledger: ledger.Len(), Artifacts: len(artifacts)}
	for _, id := range ledger.IDs() {
		if w.Has(entity, id) {
			st.Cached++
		} else {
			st.Pending++
		}
	}
	return st, nil
}
