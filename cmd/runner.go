package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/cache"
	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/server"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/desertthunder/spx/internal/telemetry"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	catalog    services.Catalog
	logger     *log.Logger
	output     io.Writer
	printer    *ui.Printer
	shutdown   func(context.Context) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Catalog    services.Catalog // Overrides the lease-backed catalog client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		catalog:    opts.Catalog,
		logger:     opts.Logger,
		output:     opts.Output,
		printer:    ui.NewPrinter(opts.Output, nil),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, ledgerCommand, fetchCommand, harvestCommand, loadCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the configuration, applies the log level and starts tracing.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		config, err := r.loadConfig(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	shared.SetLogLevelString(r.logger, r.config.Log.Level)
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	shutdown, err := telemetry.InitTracer(ctx, r.config.Telemetry.Tracing)
	if err != nil {
		r.logger.Warn("tracing disabled", "error", err)
	} else {
		r.shutdown = shutdown
	}
	return ctx, nil
}

// after flushes spans and writes the metrics textfile when one is configured.
func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	if r.shutdown != nil {
		if err := r.shutdown(ctx); err != nil {
			r.logger.Warn("failed to flush traces", "error", err)
		}
	}
	if r.config != nil && r.config.Telemetry.MetricsFile != "" {
		if err := telemetry.WriteTextfile(r.config.Telemetry.MetricsFile); err != nil {
			r.logger.Warn("failed to write metrics", "path", r.config.Telemetry.MetricsFile, "error", err)
		}
	}
	return nil
}

// loadConfig reads path, falling back to the embedded defaults when it does not exist
// so that "setup config" can create it.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	r.configPath = path
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return shared.DefaultConfig(), nil
	}
	return shared.LoadConfig(path)
}

func (r *Runner) workspace() *cache.Workspace {
	return cache.NewWorkspace(r.config.Data.Root)
}

// catalogClient returns the injected catalog or one authorized by the persisted lease.
func (r *Runner) catalogClient() (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}
	lease, err := r.leaseManager()
	if err != nil {
		return nil, err
	}
	return services.NewCatalogClient(r.config.API.BaseURL, lease,
		services.WithCatalogHTTPClient(&http.Client{Timeout: r.config.API.Timeout(), Transport: r.httpClient.Transport}),
		services.WithRateLimit(r.config.API.RequestsPerSecond),
		services.WithCatalogLogger(r.logger),
	), nil
}

func (r *Runner) leaseManager() (*services.LeaseManager, error) {
	if !r.config.HasCredentials() {
		return nil, fmt.Errorf("%w: set credentials.spotify in %s or %s/%s", shared.ErrMissingCredentials, r.configPath, "SPX_CLIENT_ID", "SPX_CLIENT_SECRET")
	}
	return services.NewLeaseManager(r.config.Credentials.Spotify.Map(), r.config.LeasePath(),
		services.WithHTTPClient(r.httpClient),
		services.WithLeaseLogger(r.logger))
}

// openDatabase opens the configured store and applies pending migrations.
func (r *Runner) openDatabase() (*sql.DB, shared.Dialect, error) {
	db, dialect, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, "", err
	}
	if err := shared.RunMigrations(db, dialect); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, dialect, nil
}

// serveMetrics exposes the status router for the lifetime of ctx when an address is configured.
func (r *Runner) serveMetrics(ctx context.Context) {
	addr := r.config.Telemetry.MetricsAddr
	if addr == "" {
		return
	}
	go func() {
		if err := server.Run(ctx, addr, server.New(r.workspace(), r.logger), r.logger); err != nil {
			r.logger.Error("status server stopped", "addr", addr, "error", err)
		}
	}()
}

// withProgress runs fn with a progress channel drained to the output.
func (r *Runner) withProgress(fn func(progress chan<- tasks.ProgressUpdate) error) error {
	progress := make(chan tasks.ProgressUpdate, 100)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.printer.Drain(progress)
	}()

	err := fn(progress)
	close(progress)
	<-done
	return err
}

// report prints summary as JSON or text and writes it to --report when set.
func (r *Runner) report(cmd *cli.Command, title string, summary any) error {
	if path := cmd.String("report"); path != "" {
		if err := formatter.WriteReport(summary, cmd.String("format"), path); err != nil {
			return err
		}
		r.logger.Info("report written", "path", path)
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}

	body, err := formatter.Render(summary, formatter.FormatText)
	if err != nil {
		return err
	}
	r.printer.Summary(title, body)
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// engine builds a task engine over the workspace, wiring the catalog and store on request.
// The returned cleanup closes whatever was opened.
func (r *Runner) engine(catalog, store bool) (*tasks.Engine, func(), error) {
	opts := []tasks.EngineOption{tasks.WithLogger(r.logger)}
	cleanup := func() {}

	if catalog {
		client, err := r.catalogClient()
		if err != nil {
			return nil, cleanup, err
		}
		opts = append(opts, tasks.WithCatalog(client))
	}

	if store {
		db, dialect, err := r.openDatabase()
		if err != nil {
			return nil, cleanup, err
		}
		opts = append(opts, tasks.WithDatabase(db, dialect))
		cleanup = func() {
			if err := db.Close(); err != nil {
				r.logger.Warn("failed to close database", "error", err)
			}
		}
	}

	return tasks.NewEngine(r.workspace(), opts...), cleanup, nil
}
