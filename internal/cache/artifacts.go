package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

const (
	itemsDir     = "items"
	artifactExt  = ".json"
	ledgerFile   = "ids.csv"
	artifactPerm = 0644
)

// Store is the artifact cache: one write-once JSON file per (entity, id).
type Store struct {
	root string
}

// NewStore returns a store rooted at the data root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the data root.
func (s *Store) Root() string { return s.root }

// Dir returns the directory holding entity's artifacts.
func (s *Store) Dir(entity models.EntityType) string {
	return filepath.Join(s.root, string(entity), itemsDir)
}

// Path returns the artifact path for (entity, id).
func (s *Store) Path(entity models.EntityType, id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.Dir(entity), id+artifactExt), nil
}

// Has reports whether an artifact exists for (entity, id). Invalid ids are never cached.
func (s *Store) Has(entity models.EntityType, id string) bool {
	path, err := s.Path(entity, id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Put writes data as the artifact for (entity, id) unless one already exists.
// It reports whether it wrote anything.
func (s *Store) Put(entity models.EntityType, id string, data []byte) (bool, error) {
	path, err := s.Path(entity, id)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := shared.WriteFileAtomic(path, data, artifactPerm); err != nil {
		return false, fmt.Errorf("failed to write artifact %s/%s: %w", entity, id, err)
	}
	return true, nil
}

// Get reads the artifact for (entity, id).
func (s *Store) Get(entity models.EntityType, id string) ([]byte, error) {
	path, err := s.Path(entity, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", shared.ErrArtifactNotFound, entity, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s/%s: %w", entity, id, err)
	}
	return data, nil
}

// IDs lists the cached identifiers for entity in lexical order.
func (s *Store) IDs(entity models.EntityType) ([]string, error) {
	entries, err := os.ReadDir(s.Dir(entity))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s artifacts: %w", entity, err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, artifactExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, artifactExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Walk calls fn with every cached artifact of entity, stopping at the first error.
func (s *Store) Walk(entity models.EntityType, fn func(id string, data []byte) error) error {
	ids, err := s.IDs(entity)
	if err != nil {
		return err
	}
	for _, id := range ids {
		data, err := s.Get(entity, id)
		if err != nil {
			return err
		}
		if err := fn(id, data); err != nil {
			return err
		}
	}
	return nil
}

// ValidateID rejects identifiers that could escape the entity directory.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty id", shared.ErrInvalidIdentifier)
	case strings.ContainsAny(id, `/\`), strings.Contains(id, ".."), strings.HasPrefix(id, "."):
		return fmt.Errorf("%w: %q", shared.ErrInvalidIdentifier, id)
	}
	return nil
}
