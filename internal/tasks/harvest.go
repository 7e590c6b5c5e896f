package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/cache"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/parser"
)

// HarvestSummary reports a harvest run. Added counts new ledger ids per entity.
type HarvestSummary struct {
	RunID     string                    `json:"run_id"`
	Sources   []models.EntityType       `json:"sources"`
	Artifacts int                       `json:"artifacts"`
	Skipped   []RecordError             `json:"skipped"`
	Added     map[models.EntityType]int `json:"added"`
	Written   int                       `json:"written"`
	Elapsed   time.Duration             `json:"elapsed"`
}

func newHarvestSummary(runID string, sources ...models.EntityType) *HarvestSummary {
	return &HarvestSummary{RunID: runID, Sources: sources, Skipped: []RecordError{}, Added: make(map[models.EntityType]int)}
}

// HarvestPlaylists appends the tracks, albums and artists referenced by cached playlists to their ledgers.
func (e *Engine) HarvestPlaylists(ctx context.Context, progress chan<- ProgressUpdate) (*HarvestSummary, error) {
	return e.harvestRefs(ctx, progress, []models.EntityType{models.Playlists}, func(_ models.EntityType, data []byte) (map[models.EntityType][]string, error) {
		refs, err := parser.PlaylistRefs(data)
		if err != nil {
			return nil, err
		}
		return map[models.EntityType][]string{
			models.Tracks:  refs.Tracks,
			models.Albums:  refs.Albums,
			models.Artists: refs.Artists,
		}, nil
	})
}

// HarvestArtists appends the artists credited on cached tracks and albums to the artists ledger.
func (e *Engine) HarvestArtists(ctx context.Context, progress chan<- ProgressUpdate) (*HarvestSummary, error) {
	return e.harvestRefs(ctx, progress, []models.EntityType{models.Tracks, models.Albums}, func(_ models.EntityType, data []byte) (map[models.EntityType][]string, error) {
		ids, err := parser.ArtistRefs(data)
		if err != nil {
			return nil, err
		}
		return map[models.EntityType][]string{models.Artists: ids}, nil
	})
}

type refExtractor func(source models.EntityType, data []byte) (map[models.EntityType][]string, error)

func (e *Engine) harvestRefs(ctx context.Context, progress chan<- ProgressUpdate, sources []models.EntityType, extract refExtractor) (*HarvestSummary, error) {
	runID, logger := e.runLogger("sources", sources)
	summary := newHarvestSummary(runID, sources...)
	start := time.Now()
	defer func() { summary.Elapsed = time.Since(start) }()

	ledgers := make(map[models.EntityType]*cache.Ledger)
	for _, source := range sources {
		ids, err := e.workspace.IDs(source)
		if err != nil {
			return summary, err
		}

		for i, id := range ids {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			e.sendProgress(progress, harvestUpdate(i+1, len(ids), source, id))

			data, err := e.workspace.Get(source, id)
			if err != nil {
				return summary, err
			}
			summary.Artifacts++

			refs, err := extract(source, data)
			if err != nil {
				logger.Warn("skipping artifact", "entity", source, "id", id, "error", err)
				summary.Skipped = append(summary.Skipped, RecordError{Key: fmt.Sprintf("%s/%s", source, id), Error: err.Error()})
				continue
			}

			for entity, refIDs := range refs {
				ledger, err := e.ledgerFor(ledgers, entity)
				if err != nil {
					return summary, err
				}
				summary.Added[entity] += ledger.Add(refIDs...)
			}
		}
	}

	if err := saveLedgers(logger, ledgers, summary.Added); err != nil {
		return summary, err
	}
	logger.Info("harvest complete", "artifacts", summary.Artifacts, "added", summary.Added, "skipped", len(summary.Skipped))
	return summary, nil
}

// HarvestChapters splits every cached audiobook into chapter artifacts and queues the chapter ids.
// Chapter artifacts carry their audiobook so the audiobooks_chapters junction can be resolved.
func (e *Engine) HarvestChapters(ctx context.Context, progress chan<- ProgressUpdate) (*HarvestSummary, error) {
	runID, logger := e.runLogger("sources", models.Audiobooks)
	summary := newHarvestSummary(runID, models.Audiobooks)
	start := time.Now()
	defer func() { summary.Elapsed = time.Since(start) }()

	ledgers := make(map[models.EntityType]*cache.Ledger)
	ledger, err := e.ledgerFor(ledgers, models.Chapters)
	if err != nil {
		return summary, err
	}

	books, err := e.workspace.IDs(models.Audiobooks)
	if err != nil {
		return summary, err
	}

	for i, book := range books {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		data, err := e.workspace.Get(models.Audiobooks, book)
		if err != nil {
			return summary, err
		}
		summary.Artifacts++

		ids, artifacts, err := parser.Chapters(data)
		if err != nil {
			logger.Warn("skipping audiobook", "id", book, "error", err)
			summary.Skipped = append(summary.Skipped, RecordError{Key: fmt.Sprintf("%s/%s", models.Audiobooks, book), Error: err.Error()})
			continue
		}

		for _, id := range ids {
			if err := cache.ValidateID(id); err != nil {
				summary.Skipped = append(summary.Skipped, RecordError{Key: fmt.Sprintf("%s/%s", models.Chapters, id), Error: err.Error()})
				continue
			}
			wrote, err := e.workspace.Put(models.Chapters, id, artifacts[id])
			if err != nil {
				return summary, err
			}
			if wrote {
				summary.Written++
			}
			summary.Added[models.Chapters] += ledger.Add(id)
		}
		e.sendProgress(progress, harvestChapterUpdate(i+1, len(books), book, len(ids)))
	}

	if err := saveLedgers(logger, ledgers, summary.Added); err != nil {
		return summary, err
	}
	logger.Info("chapters harvested", "audiobooks", summary.Artifacts, "written", summary.Written, "queued", summary.Added[models.Chapters])
	return summary, nil
}

func (e *Engine) ledgerFor(ledgers map[models.EntityType]*cache.Ledger, entity models.EntityType) (*cache.Ledger, error) {
	if l, ok := ledgers[entity]; ok {
		return l, nil
	}
	l, err := e.workspace.Ledger(entity)
	if err != nil {
		return nil, err
	}
	ledgers[entity] = l
	return l, nil
}

// saveLedgers rewrites the ledgers that gained ids.
func saveLedgers(logger *log.Logger, ledgers map[models.EntityType]*cache.Ledger, added map[models.EntityType]int) error {
	for entity, l := range ledgers {
		if added[entity] == 0 {
			continue
		}
		if err := l.Save(); err != nil {
			return err
		}
		logger.Debug("ledger updated", "entity", entity, "added", added[entity], "size", l.Len())
	}
	return nil
}
