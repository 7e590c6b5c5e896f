package cache

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/spx/internal/shared"
)

// idColumn is the ledger header.
const idColumn = "ID"

// Ledger is an ordered, duplicate-free list of identifiers backed by a CSV file.
// It is not safe for concurrent use.
type Ledger struct {
	path  string
	ids   []string
	index map[string]struct{}
}

// NewLedger returns an empty ledger that saves to path.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path, index: make(map[string]struct{})}
}

// LoadLedger reads the ledger at path. A missing file yields an empty ledger.
//
// The ID column is located by header, so files carrying extra columns are read
// fine; those columns are dropped on the next [Ledger.Save]. Duplicate and blank
// ids are ignored, first appearance wins.
func LoadLedger(path string) (*Ledger, error) {
	l := NewLedger(path)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")), idColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: ledger %s has no %s column", shared.ErrInvalidArgument, path, idColumn)
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger: %w", err)
		}
		if col < len(record) {
			l.Add(record[col])
		}
	}

	return l, nil
}

// Path returns the backing file.
func (l *Ledger) Path() string { return l.path }

// Len returns the number of identifiers.
func (l *Ledger) Len() int { return len(l.ids) }

// IDs returns the identifiers in ledger order.
func (l *Ledger) IDs() []string {
	return append([]string(nil), l.ids...)
}

// Contains reports whether id is in the ledger.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.index[id]
	return ok
}

// Add appends ids not already present and returns how many were added.
func (l *Ledger) Add(ids ...string) int {
	added := 0
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := l.index[id]; ok {
			continue
		}
		l.index[id] = struct{}{}
		l.ids = append(l.ids, id)
		added++
	}
	return added
}

// Remove drops ids and returns how many were present.
func (l *Ledger) Remove(ids ...string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := l.index[id]; ok {
			drop[id] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return 0
	}

	kept := l.ids[:0]
	for _, id := range l.ids {
		if _, ok := drop[id]; ok {
			delete(l.index, id)
			continue
		}
		kept = append(kept, id)
	}
	l.ids = kept
	return len(drop)
}

// Save rewrites the ledger file atomically.
func (l *Ledger) Save() error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{idColumn}); err != nil {
		return fmt.Errorf("failed to write ledger header: %w", err)
	}
	for _, id := range l.ids {
		if err := w.Write([]string{id}); err != nil {
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush ledger: %w", err)
	}

	if err := shared.WriteFileAtomic(l.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}
