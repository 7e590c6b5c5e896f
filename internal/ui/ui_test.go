package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/desertthunder/spx/internal/cache"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/tasks"
)

// tagPainter wraps text in markers so tests can see which style was applied.
type tagPainter struct{}

func (tagPainter) Title(s string) string { return "<title>" + s }
func (tagPainter) OK(s string) string    { return "<ok>" + s }
func (tagPainter) Err(s string) string   { return "<err>" + s }
func (tagPainter) Warn(s string) string  { return "<warn>" + s }
func (tagPainter) Help(s string) string  { return "<help>" + s }

func TestPrinter(t *testing.T) {
	t.Run("Drain", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewPrinter(&buf, tagPainter{})

		updates := make(chan tasks.ProgressUpdate, 3)
		updates <- tasks.ProgressUpdate{Message: "[1/2] tracks t1: fetched"}
		updates <- tasks.ProgressUpdate{Message: "[2/2] ✗ tracks batch: boom"}
		updates <- tasks.ProgressUpdate{Message: "✓ tracks: 1 inserted"}
		close(updates)
		p.Drain(updates)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		want := []string{"[1/2] tracks t1: fetched", "<err>[2/2] ✗ tracks batch: boom", "<ok>✓ tracks: 1 inserted"}
		if len(lines) != len(want) {
			t.Fatalf("expected %d lines, got %q", len(want), lines)
		}
		for i := range want {
			if lines[i] != want[i] {
				t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
			}
		}
	})

	t.Run("Counts", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewPrinter(&buf, tagPainter{})
		p.Counts(3, 0, "fetched")
		p.Counts(3, 1, "fetched")
		if got := buf.String(); got != "<ok>3 fetched, 0 failed\n<warn>3 fetched, 1 failed\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("Statuses", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewPrinter(&buf, tagPainter{})
		p.Statuses([]cache.Status{
			{Entity: models.Tracks, Ledger: 2, Cached: 2, Artifacts: 2},
			{Entity: models.Albums, Ledger: 3, Cached: 1, Pending: 2, Artifacts: 1},
		})
		output := buf.String()
		if !strings.HasPrefix(output, "<title>ENTITY") {
			t.Errorf("missing header: %q", output)
		}
		if !strings.Contains(output, "\ntracks ") || !strings.Contains(output, "<warn>albums") {
			t.Errorf("unexpected rows: %q", output)
		}
	})

	t.Run("Default Palette", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf, nil).Hint("run spx fetch")
		if !strings.Contains(buf.String(), "run spx fetch") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}
