package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// Outcome is the result of loading one record.
type Outcome int

const (
	Inserted Outcome = iota
	Existing
	Unresolved
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Existing:
		return "existing"
	case Unresolved:
		return "unresolved"
	default:
		return "failed"
	}
}

// Strategy loads one target table from cached artifacts.
type Strategy struct {
	// Name is the load target, e.g. "tracks" or "tracks_artists".
	Name string
	// Sources lists the entities whose artifacts feed this target.
	Sources []models.EntityType
	// Table is counted once the load finishes.
	Table string
	// Junction marks relationship targets.
	Junction bool
	// Parse turns one artifact of source into records. It may return none.
	Parse func(source models.EntityType, data []byte) ([]models.Record, error)
	// Load writes one record. Errors wrap shared.ErrUnresolvedReference or shared.ErrStoreFailure.
	Load func(ctx context.Context, c *Conn, rec models.Record) (Outcome, error)
}

// Registry holds strategies in registration order.
type Registry struct {
	strategies map[string]*Strategy
	order      []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]*Strategy)}
}

// DefaultRegistry returns every entity target followed by every junction target, in load order.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range entityStrategies() {
		r.MustRegister(s)
	}
	for _, s := range junctionStrategies() {
		r.MustRegister(s)
	}
	return r
}

// Register adds s. Names must be unique.
func (r *Registry) Register(s *Strategy) error {
	if s == nil || s.Name == "" || s.Parse == nil || s.Load == nil || len(s.Sources) == 0 {
		return fmt.Errorf("%w: incomplete strategy", shared.ErrInvalidArgument)
	}
	if _, ok := r.strategies[s.Name]; ok {
		return fmt.Errorf("%w: strategy %q already registered", shared.ErrInvalidArgument, s.Name)
	}
	r.strategies[s.Name] = s
	r.order = append(r.order, s.Name)
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(s *Strategy) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Get returns the strategy for target.
func (r *Registry) Get(target string) (*Strategy, error) {
	s, ok := r.strategies[target]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownTarget, target)
	}
	return s, nil
}

// Names returns the registered targets in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrStoreFailure, op, err)
}

func unexpectedRecord(target string, rec models.Record) (Outcome, error) {
	return Failed, fmt.Errorf("%w: %s cannot load %T", shared.ErrInvalidArgument, target, rec)
}
