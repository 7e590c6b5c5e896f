package tasks

import (
	"fmt"

	"github.com/desertthunder/spx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchItems Phase = iota
	FetchBatches
	LoadRecords
	HarvestRefs
	HarvestChapters
)

func (p Phase) String() string {
	switch p {
	case FetchItems:
		return "fetch_items"
	case FetchBatches:
		return "fetch_batches"
	case LoadRecords:
		return "load_records"
	case HarvestRefs:
		return "harvest_refs"
	case HarvestChapters:
		return "harvest_chapters"
	default:
		return ""
	}
}

func fetchItemUpdate(step, total int, entity models.EntityType, id, outcome string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s: %s", step, total, entity, id, outcome),
	}
}

func fetchBatchUpdate(step, total int, entity models.EntityType, size, missing int) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s batch of %d", step, total, entity, size)
	if missing > 0 {
		msg += fmt.Sprintf(" (%d missing)", missing)
	}
	return ProgressUpdate{Phase: FetchBatches, Step: step, Total: total, Message: msg}
}

func fetchBatchFailedUpdate(step, total int, entity models.EntityType, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchBatches,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s batch: %v", step, total, entity, err),
	}
}

func loadStartUpdate(target string, records, workers int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadRecords,
		Total:   records,
		Message: fmt.Sprintf("Loading %d %s records with %d workers...", records, target, workers),
	}
}

func loadDoneUpdate(s *LoadSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadRecords,
		Step:    s.Records,
		Total:   s.Records,
		Message: fmt.Sprintf("✓ %s: %d inserted, %d existing, %d unresolved, %d failed", s.Target, s.Inserted, s.Existing, s.Unresolved, s.Failed),
		Data:    s,
	}
}

func harvestUpdate(step, total int, entity models.EntityType, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   HarvestRefs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Reading %s %s...", step, total, entity, id),
	}
}

func harvestChapterUpdate(step, total int, audiobook string, chapters int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   HarvestChapters,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %d chapters", step, total, audiobook, chapters),
	}
}
