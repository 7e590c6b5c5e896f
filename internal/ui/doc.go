// Package ui renders pipeline progress and run summaries for the terminal with lipgloss styles.
//
// Progress updates arrive on the channel handed to the [tasks.Engine] and are drained
// by [Printer.Drain] until the channel is closed. Success lines (✓) render in the
// ok colour, failures (✗) in the error colour and everything else plain.
package ui
