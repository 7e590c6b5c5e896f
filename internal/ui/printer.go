package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/spx/internal/cache"
	"github.com/desertthunder/spx/internal/tasks"
)

// Printer writes styled progress and summaries to w.
type Printer struct {
	w       io.Writer
	painter Painter
}

// NewPrinter returns a printer using painter, or [DefaultPalette] when nil.
func NewPrinter(w io.Writer, painter Painter) *Printer {
	if painter == nil {
		painter = DefaultPalette
	}
	return &Printer{w: w, painter: painter}
}

// Drain prints every update until updates is closed.
func (p *Printer) Drain(updates <-chan tasks.ProgressUpdate) {
	for u := range updates {
		p.Progress(u)
	}
}

// Progress prints one update.
func (p *Printer) Progress(u tasks.ProgressUpdate) {
	switch {
	case strings.Contains(u.Message, "✗"):
		fmt.Fprintln(p.w, p.painter.Err(u.Message))
	case strings.Contains(u.Message, "✓"):
		fmt.Fprintln(p.w, p.painter.OK(u.Message))
	default:
		fmt.Fprintln(p.w, u.Message)
	}
}

// Summary prints a titled report body.
func (p *Printer) Summary(title string, body []byte) {
	fmt.Fprintln(p.w, p.painter.Title(title))
	p.w.Write(body)
}

// Counts prints a one-line tally, colouring failures when there are any.
func (p *Printer) Counts(ok, failed int, label string) {
	line := fmt.Sprintf("%d %s, %d failed", ok, label, failed)
	if failed > 0 {
		fmt.Fprintln(p.w, p.painter.Warn(line))
		return
	}
	fmt.Fprintln(p.w, p.painter.OK(line))
}

// Statuses prints ledger and cache counts per entity.
func (p *Printer) Statuses(statuses []cache.Status) {
	fmt.Fprintln(p.w, p.painter.Title(fmt.Sprintf("%-12s %8s %8s %8s %10s", "ENTITY", "LEDGER", "CACHED", "PENDING", "ARTIFACTS")))
	for _, s := range statuses {
		line := fmt.Sprintf("%-12s %8d %8d %8d %10d", s.Entity, s.Ledger, s.Cached, s.Pending, s.Artifacts)
		if s.Pending > 0 {
			line = p.painter.Warn(line)
		}
		fmt.Fprintln(p.w, line)
	}
}

// Hint prints a muted help line.
func (p *Printer) Hint(s string) {
	fmt.Fprintln(p.w, p.painter.Help(s))
}
