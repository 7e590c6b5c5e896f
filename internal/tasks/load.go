package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/telemetry"
)

// LoadOpts contains configuration for a load run.
type LoadOpts struct {
	Target  string // Entity or junction name, see [repositories.Registry.Names]
	Workers int    // Concurrent workers (default: DefaultWorkers)
}

// RecordError ties a failure to the record or artifact that caused it.
type RecordError struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// LoadSummary reports what a load run did. Total is the table's row count after the run.
type LoadSummary struct {
	RunID      string        `json:"run_id"`
	Target     string        `json:"target"`
	Records    int           `json:"records"`
	Inserted   int           `json:"inserted"`
	Existing   int           `json:"existing"`
	Unresolved int           `json:"unresolved"`
	Failed     int           `json:"failed"`
	Errors     []RecordError `json:"errors"`
	Total      int           `json:"total"`
	Elapsed    time.Duration `json:"elapsed"`
}

func (s *LoadSummary) record(outcome repositories.Outcome, key string, err error) {
	switch outcome {
	case repositories.Inserted:
		s.Inserted++
	case repositories.Existing:
		s.Existing++
	case repositories.Unresolved:
		s.Unresolved++
	default:
		s.Failed++
		if err != nil {
			s.Errors = append(s.Errors, RecordError{Key: key, Error: err.Error()})
		}
	}
	telemetry.LoadRecords.WithLabelValues(s.Target, outcome.String()).Inc()
}

// Load parses the cached artifacts feeding opts.Target and writes them with a pool of workers.
//
// Records are deduplicated by natural key before they are queued, so no two
// workers ever handle the same key. Each worker holds its own connection for the
// whole run. Per-record failures are counted and the run continues; unresolved
// junction endpoints are counted as skipped.
func (e *Engine) Load(ctx context.Context, progress chan<- ProgressUpdate, opts LoadOpts) (*LoadSummary, error) {
	if e.db == nil {
		return nil, fmt.Errorf("%w: database not configured", shared.ErrMissingArgument)
	}

	strategy, err := e.registry.Get(opts.Target)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	runID, logger := e.runLogger("target", strategy.Name)
	summary := &LoadSummary{RunID: runID, Target: strategy.Name, Errors: []RecordError{}}

	ctx, span := telemetry.StartSpan(ctx, "load", telemetry.AttrTarget.String(strategy.Name))
	defer span.End()

	start := time.Now()
	defer func() {
		summary.Elapsed = time.Since(start)
		telemetry.LoadDuration.WithLabelValues(strategy.Name).Observe(summary.Elapsed.Seconds())
	}()

	records, err := e.collect(strategy, summary)
	if err != nil {
		span.RecordError(err)
		return summary, err
	}
	summary.Records = len(records)
	span.SetAttributes(telemetry.AttrCount.Int(len(records)))

	workers = max(1, min(workers, len(records)))
	e.sendProgress(progress, loadStartUpdate(strategy.Name, len(records), workers))
	logger.Info("loading", "records", len(records), "workers", workers)

	jobs := make(chan models.Record, len(records))
	for _, rec := range records {
		jobs <- rec
	}
	close(jobs)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		processed int
		connErrs  []error
	)
	for i := range workers {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			conn, err := e.db.Conn(ctx)
			if err != nil {
				mu.Lock()
				connErrs = append(connErrs, err)
				mu.Unlock()
				logger.Error("worker could not acquire a connection", "worker", worker, "error", err)
				return
			}
			defer conn.Close()
			c := repositories.NewConn(conn, e.dialect)

			for rec := range jobs {
				if ctx.Err() != nil {
					return
				}

				outcome, err := strategy.Load(ctx, c, rec)
				switch outcome {
				case repositories.Unresolved:
					logger.Debug("skipping unresolved record", "key", rec.Key(), "error", err)
				case repositories.Failed:
					logger.Warn("record failed", "key", rec.Key(), "error", err)
				}

				mu.Lock()
				processed++
				summary.record(outcome, rec.Key(), err)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return summary, err
	}
	if processed < len(records) && len(connErrs) > 0 {
		err := fmt.Errorf("%w: %d of %d records not processed: %w", shared.ErrStoreFailure, len(records)-processed, len(records), errors.Join(connErrs...))
		span.RecordError(err)
		return summary, err
	}

	total, err := repositories.NewConn(e.db, e.dialect).Count(ctx, strategy.Table)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", shared.ErrStoreFailure, err)
	}
	summary.Total = total

	e.sendProgress(progress, loadDoneUpdate(summary))
	logger.Info("load complete",
		"records", summary.Records,
		"inserted", summary.Inserted,
		"existing", summary.Existing,
		"unresolved", summary.Unresolved,
		"failed", summary.Failed,
		"total", summary.Total)
	return summary, nil
}

// LoadAll loads every registered target in registration order, stopping at the first run error.
func (e *Engine) LoadAll(ctx context.Context, progress chan<- ProgressUpdate, workers int) ([]*LoadSummary, error) {
	var summaries []*LoadSummary
	for _, target := range e.registry.Names() {
		s, err := e.Load(ctx, progress, LoadOpts{Target: target, Workers: workers})
		if s != nil {
			summaries = append(summaries, s)
		}
		if err != nil {
			return summaries, fmt.Errorf("load %s: %w", target, err)
		}
	}
	return summaries, nil
}

// collect parses every source artifact of strategy and deduplicates the records
// by key, keeping first appearance. Unparseable artifacts count as failed.
func (e *Engine) collect(strategy *repositories.Strategy, summary *LoadSummary) ([]models.Record, error) {
	seen := make(map[string]bool)
	var records []models.Record

	for _, source := range strategy.Sources {
		err := e.workspace.Walk(source, func(id string, data []byte) error {
			parsed, err := strategy.Parse(source, data)
			if err != nil {
				summary.record(repositories.Failed, string(source)+"/"+id, err)
				return nil
			}
			for _, rec := range parsed {
				key := rec.Key()
				if seen[key] {
					continue
				}
				seen[key] = true
				records = append(records, rec)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}
