package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/cache"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/parser"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/telemetry"
)

// FetchOpts contains configuration for a fetch run.
type FetchOpts struct {
	Entity    models.EntityType
	Batch     bool // Use the batch endpoint when the entity has one
	BatchSize int  // Ids per batch call; 0 or above the API limit means the limit
}

// FetchFailure records an id the API refused. StatusCode is 0 for ids rejected locally.
type FetchFailure struct {
	ID         string `json:"id"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
}

// FetchSummary reports what a fetch run did.
type FetchSummary struct {
	RunID     string            `json:"run_id"`
	Entity    models.EntityType `json:"entity"`
	Mode      string            `json:"mode"`
	Requested int               `json:"requested"`
	Cached    int               `json:"cached"`
	Fetched   int               `json:"fetched"`
	Failed    []FetchFailure    `json:"failed"`
	Missing   []string          `json:"missing"`
	Calls     int               `json:"calls"`
	Waits     int               `json:"waits"`
	Pruned    int               `json:"pruned"`
	Elapsed   time.Duration     `json:"elapsed"`
}

func (s *FetchSummary) fail(entity models.EntityType, id string, status int, err error) {
	s.Failed = append(s.Failed, FetchFailure{ID: id, StatusCode: status, Error: err.Error()})
	telemetry.FetchItems.WithLabelValues(string(entity), "failed").Inc()
}

func (s *FetchSummary) account(resp *services.APIResponse) {
	if resp == nil {
		return
	}
	s.Calls += resp.Waits + 1
	s.Waits += resp.Waits
}

// Fetch downloads every uncached ledger id of opts.Entity into the artifact cache.
//
// Per-item failures are collected in the summary. In per-item mode the ledger is
// rewritten without the failed ids once the run completes; batch mode never
// rewrites the ledger. Authorization, transport, cancellation and cache write
// errors end the run and are returned with the partial summary.
func (e *Engine) Fetch(ctx context.Context, progress chan<- ProgressUpdate, opts FetchOpts) (*FetchSummary, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog client not configured", shared.ErrMissingArgument)
	}
	if !opts.Entity.Fetchable() {
		return nil, fmt.Errorf("%w: %q cannot be fetched", shared.ErrInvalidArgument, opts.Entity)
	}

	ledger, err := e.workspace.Ledger(opts.Entity)
	if err != nil {
		return nil, err
	}

	runID, logger := e.runLogger("entity", opts.Entity)
	summary := &FetchSummary{RunID: runID, Entity: opts.Entity, Requested: ledger.Len(), Failed: []FetchFailure{}, Missing: []string{}}

	ctx, span := telemetry.StartSpan(ctx, "fetch", telemetry.AttrEntity.String(string(opts.Entity)), telemetry.AttrCount.Int(ledger.Len()))
	defer span.End()

	start := time.Now()
	if opts.Batch && opts.Entity.SupportsBatch() {
		summary.Mode = "batch"
		err = e.fetchBatches(ctx, progress, logger, ledger, opts, summary)
	} else {
		summary.Mode = "item"
		err = e.fetchItems(ctx, progress, logger, ledger, opts.Entity, summary)
	}
	summary.Elapsed = time.Since(start)

	if err != nil {
		span.RecordError(err)
		logger.Error("fetch aborted", "error", err, "fetched", summary.Fetched, "failed", len(summary.Failed))
		return summary, err
	}

	logger.Info("fetch complete",
		"mode", summary.Mode,
		"requested", summary.Requested,
		"cached", summary.Cached,
		"fetched", summary.Fetched,
		"failed", len(summary.Failed),
		"missing", len(summary.Missing),
		"calls", summary.Calls,
		"waits", summary.Waits,
		"elapsed", summary.Elapsed)
	return summary, nil
}

func (e *Engine) fetchItems(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, ledger *cache.Ledger, entity models.EntityType, summary *FetchSummary) error {
	ids := ledger.IDs()
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := cache.ValidateID(id); err != nil {
			logger.Warn("rejecting identifier", "id", id, "error", err)
			summary.fail(entity, id, 0, err)
			e.sendProgress(progress, fetchItemUpdate(i+1, len(ids), entity, id, "invalid"))
			continue
		}

		if e.workspace.Has(entity, id) {
			summary.Cached++
			telemetry.FetchItems.WithLabelValues(string(entity), "cached").Inc()
			e.sendProgress(progress, fetchItemUpdate(i+1, len(ids), entity, id, "cached"))
			continue
		}

		resp, err := e.catalog.Item(ctx, entity, id)
		summary.account(resp)

		var statusErr *services.StatusError
		if errors.As(err, &statusErr) {
			logger.Warn("fetch failed", "id", id, "status", statusErr.StatusCode)
			summary.fail(entity, id, statusErr.StatusCode, err)
			e.sendProgress(progress, fetchItemUpdate(i+1, len(ids), entity, id, fmt.Sprintf("failed (%d)", statusErr.StatusCode)))
			continue
		}
		if err != nil {
			return err
		}

		if _, err := e.workspace.Put(entity, id, resp.Body); err != nil {
			return err
		}
		summary.Fetched++
		telemetry.FetchItems.WithLabelValues(string(entity), "fetched").Inc()
		logger.Debug("fetched", "id", id, "waits", resp.Waits)
		e.sendProgress(progress, fetchItemUpdate(i+1, len(ids), entity, id, "fetched"))
	}

	if len(summary.Failed) == 0 {
		return nil
	}

	failed := make([]string, len(summary.Failed))
	for i, f := range summary.Failed {
		failed[i] = f.ID
	}
	summary.Pruned = ledger.Remove(failed...)
	if err := ledger.Save(); err != nil {
		return err
	}
	logger.Info("ledger pruned", "removed", summary.Pruned, "remaining", ledger.Len())
	return nil
}

func (e *Engine) fetchBatches(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, ledger *cache.Ledger, opts FetchOpts, summary *FetchSummary) error {
	entity := opts.Entity
	size := opts.BatchSize
	if size <= 0 || size > entity.MaxBatch() {
		size = entity.MaxBatch()
	}

	var pending []string
	for _, id := range ledger.IDs() {
		if err := cache.ValidateID(id); err != nil {
			logger.Warn("rejecting identifier", "id", id, "error", err)
			summary.fail(entity, id, 0, err)
			continue
		}
		if e.workspace.Has(entity, id) {
			summary.Cached++
			telemetry.FetchItems.WithLabelValues(string(entity), "cached").Inc()
			continue
		}
		pending = append(pending, id)
	}

	groups := chunk(pending, size)
	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := e.catalog.Several(ctx, entity, group)
		summary.account(resp)

		var statusErr *services.StatusError
		if errors.As(err, &statusErr) {
			logger.Warn("batch failed", "ids", len(group), "status", statusErr.StatusCode)
			for _, id := range group {
				summary.fail(entity, id, statusErr.StatusCode, err)
			}
			e.sendProgress(progress, fetchBatchFailedUpdate(i+1, len(groups), entity, err))
			continue
		}
		if err != nil {
			return err
		}

		items, err := batchItems(resp.Body, entity)
		if err != nil {
			logger.Warn("malformed batch response", "ids", len(group), "error", err)
			for _, id := range group {
				summary.fail(entity, id, resp.StatusCode, err)
			}
			e.sendProgress(progress, fetchBatchFailedUpdate(i+1, len(groups), entity, err))
			continue
		}

		returned := make(map[string]bool, len(items))
		for _, item := range items {
			if isNull(item) {
				continue
			}
			id, err := parser.ObjectID(item)
			if err == nil {
				err = cache.ValidateID(id)
			}
			if err != nil {
				logger.Warn("skipping batch item", "error", err)
				continue
			}

			wrote, err := e.workspace.Put(entity, id, item)
			if err != nil {
				return err
			}
			returned[id] = true
			if wrote {
				summary.Fetched++
				telemetry.FetchItems.WithLabelValues(string(entity), "fetched").Inc()
			}
		}

		missing := 0
		for _, id := range group {
			if returned[id] {
				continue
			}
			missing++
			summary.Missing = append(summary.Missing, id)
			telemetry.FetchItems.WithLabelValues(string(entity), "missing").Inc()
			logger.Warn("batch item missing", "id", id, "error", shared.ErrMissingResult)
		}
		e.sendProgress(progress, fetchBatchUpdate(i+1, len(groups), entity, len(group), missing))
	}
	return nil
}

// batchItems extracts the entity array from a {"<entity>": [...]} body.
func batchItems(body []byte, entity models.EntityType) ([]json.RawMessage, error) {
	var envelope map[string][]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}
	items, ok := envelope[string(entity)]
	if !ok {
		return nil, fmt.Errorf("batch response has no %q key", entity)
	}
	return items, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// chunk splits ids into consecutive groups of at most size.
func chunk(ids []string, size int) [][]string {
	var groups [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		groups = append(groups, ids[start:end])
	}
	return groups
}
