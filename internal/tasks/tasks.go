package tasks

import (
	"database/sql"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/cache"
	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
)

// DefaultWorkers is the loader pool size when none is configured.
const DefaultWorkers = 5

// Engine runs fetch, load and harvest stages against one workspace.
type Engine struct {
	workspace *cache.Workspace
	catalog   services.Catalog
	db        *sql.DB
	dialect   shared.Dialect
	registry  *repositories.Registry
	logger    *log.Logger
}

// EngineOption configures an [Engine].
type EngineOption func(*Engine)

// WithCatalog sets the catalog client used by [Engine.Fetch].
func WithCatalog(c services.Catalog) EngineOption {
	return func(e *Engine) { e.catalog = c }
}

// WithDatabase sets the relational store used by [Engine.Load].
func WithDatabase(db *sql.DB, dialect shared.Dialect) EngineOption {
	return func(e *Engine) {
		e.db = db
		e.dialect = dialect
	}
}

// WithRegistry replaces [repositories.DefaultRegistry].
func WithRegistry(r *repositories.Registry) EngineOption {
	return func(e *Engine) { e.registry = r }
}

// WithLogger sets the logger runs derive their child loggers from.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over workspace.
func NewEngine(workspace *cache.Workspace, opts ...EngineOption) *Engine {
	e := &Engine{
		workspace: workspace,
		registry:  repositories.DefaultRegistry(),
		logger:    log.Default(),
		dialect:   shared.DialectSQLite,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workspace returns the engine's workspace.
func (e *Engine) Workspace() *cache.Workspace { return e.workspace }

// Registry returns the load strategies known to the engine.
func (e *Engine) Registry() *repositories.Registry { return e.registry }

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

// runLogger returns a child logger tagged with a fresh run id.
func (e *Engine) runLogger(kv ...any) (string, *log.Logger) {
	runID := shared.GenerateID()
	return runID, shared.WithLogger(e.logger, append([]any{"run", runID}, kv...)...)
}
