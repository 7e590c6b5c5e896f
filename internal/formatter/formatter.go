// package formatter renders fetch, load and harvest run summaries as JSON, CSV or plain text reports
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
)

// Supported report formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "txt"
)

// Render encodes a run summary in format. v is a *tasks.FetchSummary,
// []*tasks.LoadSummary, *tasks.LoadSummary or *tasks.HarvestSummary.
func Render(v any, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return shared.MarshalJSON(v, true)
	case FormatCSV:
		switch s := v.(type) {
		case *tasks.FetchSummary:
			return FetchToCSV(s)
		case *tasks.LoadSummary:
			return LoadToCSV([]*tasks.LoadSummary{s})
		case []*tasks.LoadSummary:
			return LoadToCSV(s)
		case *tasks.HarvestSummary:
			return HarvestToCSV(s)
		}
	case FormatText, "text":
		switch s := v.(type) {
		case *tasks.FetchSummary:
			return FetchToText(s), nil
		case *tasks.LoadSummary:
			return LoadToText([]*tasks.LoadSummary{s}), nil
		case []*tasks.LoadSummary:
			return LoadToText(s), nil
		case *tasks.HarvestSummary:
			return HarvestToText(s), nil
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}
	return nil, fmt.Errorf("%w: cannot render %T as %s", shared.ErrInvalidArgument, v, format)
}

// WriteReport renders v and writes it to path atomically.
func WriteReport(v any, format, path string) error {
	data, err := Render(v, format)
	if err != nil {
		return err
	}
	if err := shared.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// FetchToCSV lists the ids a fetch run could not cache with columns: ID, Outcome, Status, Error
func FetchToCSV(s *tasks.FetchSummary) ([]byte, error) {
	rows := [][]string{{"ID", "Outcome", "Status", "Error"}}
	for _, f := range s.Failed {
		rows = append(rows, []string{f.ID, "failed", strconv.Itoa(f.StatusCode), f.Error})
	}
	for _, id := range s.Missing {
		rows = append(rows, []string{id, "missing", "", shared.ErrMissingResult.Error()})
	}
	return writeCSV(rows)
}

// LoadToCSV writes one row per target with columns: Target, Records, Inserted, Existing, Unresolved, Failed, Total, Elapsed
func LoadToCSV(summaries []*tasks.LoadSummary) ([]byte, error) {
	rows := [][]string{{"Target", "Records", "Inserted", "Existing", "Unresolved", "Failed", "Total", "Elapsed"}}
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Target,
			strconv.Itoa(s.Records),
			strconv.Itoa(s.Inserted),
			strconv.Itoa(s.Existing),
			strconv.Itoa(s.Unresolved),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Total),
			FormatElapsed(s.Elapsed),
		})
	}
	return writeCSV(rows)
}

// HarvestToCSV writes the ids added per ledger with columns: Entity, Added
func HarvestToCSV(s *tasks.HarvestSummary) ([]byte, error) {
	rows := [][]string{{"Entity", "Added"}}
	for _, entity := range sortedEntities(s.Added) {
		rows = append(rows, []string{string(entity), strconv.Itoa(s.Added[entity])})
	}
	return writeCSV(rows)
}

// FetchToText renders a fetch summary for the terminal
func FetchToText(s *tasks.FetchSummary) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Fetch %s (%s mode)\n", s.Entity, s.Mode)
	fmt.Fprintf(&buf, "Requested: %d\n", s.Requested)
	fmt.Fprintf(&buf, "Cached: %d\n", s.Cached)
	fmt.Fprintf(&buf, "Fetched: %d\n", s.Fetched)
	fmt.Fprintf(&buf, "Failed: %d\n", len(s.Failed))
	fmt.Fprintf(&buf, "Missing: %d\n", len(s.Missing))
	fmt.Fprintf(&buf, "Calls: %d (%d rate-limit waits)\n", s.Calls, s.Waits)
	if s.Pruned > 0 {
		fmt.Fprintf(&buf, "Removed from ledger: %d\n", s.Pruned)
	}
	fmt.Fprintf(&buf, "Elapsed: %s\n", FormatElapsed(s.Elapsed))

	if len(s.Failed) > 0 {
		buf.WriteString("\nFailures:\n")
		for _, f := range s.Failed {
			fmt.Fprintf(&buf, "  %s [%d] %s\n", f.ID, f.StatusCode, f.Error)
		}
	}
	if len(s.Missing) > 0 {
		buf.WriteString("\nMissing from batch responses:\n")
		for _, id := range s.Missing {
			fmt.Fprintf(&buf, "  %s\n", id)
		}
	}
	return buf.Bytes()
}

// LoadToText renders load summaries as an aligned table
func LoadToText(summaries []*tasks.LoadSummary) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%-22s %8s %8s %8s %10s %6s %8s %10s\n",
		"TARGET", "RECORDS", "INSERTED", "EXISTING", "UNRESOLVED", "FAILED", "TOTAL", "ELAPSED")
	for _, s := range summaries {
		fmt.Fprintf(&buf, "%-22s %8d %8d %8d %10d %6d %8d %10s\n",
			s.Target, s.Records, s.Inserted, s.Existing, s.Unresolved, s.Failed, s.Total, FormatElapsed(s.Elapsed))
	}

	for _, s := range summaries {
		for _, e := range s.Errors {
			fmt.Fprintf(&buf, "  %s: %s: %s\n", s.Target, e.Key, e.Error)
		}
	}
	return buf.Bytes()
}

// HarvestToText renders a harvest summary for the terminal
func HarvestToText(s *tasks.HarvestSummary) []byte {
	var buf bytes.Buffer

	sources := make([]string, len(s.Sources))
	for i, src := range s.Sources {
		sources[i] = string(src)
	}
	fmt.Fprintf(&buf, "Harvested %d artifacts from %s\n", s.Artifacts, strings.Join(sources, ", "))
	if s.Written > 0 {
		fmt.Fprintf(&buf, "Artifacts written: %d\n", s.Written)
	}
	for _, entity := range sortedEntities(s.Added) {
		fmt.Fprintf(&buf, "  %s: +%d\n", entity, s.Added[entity])
	}
	if len(s.Skipped) > 0 {
		fmt.Fprintf(&buf, "Skipped: %d\n", len(s.Skipped))
		for _, e := range s.Skipped {
			fmt.Fprintf(&buf, "  %s: %s\n", e.Key, e.Error)
		}
	}
	return buf.Bytes()
}

// FormatElapsed rounds d for display.
func FormatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

func sortedEntities(m map[models.EntityType]int) []models.EntityType {
	keys := make([]models.EntityType, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}
