// Package memstore is an in-memory table.GridStore with the clear, write and
// append semantics of a spreadsheet tab.
package memstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sheetstore/pkg/record"
	"sheetstore/pkg/table"
)

// Call is one entry of the store's operation log.
type Call struct {
	Op    string
	Range table.Range
	Rows  int
	Mode  table.InputMode
}

type Store struct {
	mu     sync.Mutex
	ranges map[table.Range]record.Grid
	calls  []Call
}

var _ table.GridStore = (*Store)(nil)

func New() *Store {
	return &Store{ranges: make(map[table.Range]record.Grid)}
}

// Seed stores grid verbatim, as if the range had been edited by hand.
func (s *Store) Seed(rng table.Range, grid record.Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges[rng] = copyGrid(grid)
}

// Grid returns a copy of the raw cells held for rng.
func (s *Store) Grid(rng table.Range) record.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyGrid(s.ranges[rng])
}

func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Store) Clear(ctx context.Context, rng table.Range) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: table.OpClear, Range: rng})
	delete(s.ranges, rng)
	return nil
}

// Write overlays grid onto the range from its origin. Rows and cells outside
// the written area keep their previous content.
func (s *Store) Write(ctx context.Context, rng table.Range, grid record.Grid, mode table.InputMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !mode.Valid() {
		return fmt.Errorf("invalid input mode %q", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: table.OpWrite, Range: rng, Rows: len(grid), Mode: mode})

	existing := s.ranges[rng]
	for i, row := range grid {
		cells := interpret(row, mode)
		if i >= len(existing) {
			existing = append(existing, cells)
			continue
		}
		if len(cells) < len(existing[i]) {
			merged := append([]string(nil), existing[i]...)
			copy(merged, cells)
			cells = merged
		}
		existing[i] = cells
	}
	s.ranges[rng] = existing
	return nil
}

func (s *Store) Append(ctx context.Context, rng table.Range, row []string, mode table.InputMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !mode.Valid() {
		return fmt.Errorf("invalid input mode %q", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: table.OpAppend, Range: rng, Rows: 1, Mode: mode})
	s.ranges[rng] = append(s.ranges[rng], interpret(row, mode))
	return nil
}

func (s *Store) Read(ctx context.Context, rng table.Range) (record.Grid, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: table.OpRead, Range: rng})
	grid, ok := s.ranges[rng]
	if !ok || len(grid) == 0 {
		return nil, false, nil
	}
	return copyGrid(grid), true, nil
}

// interpret applies the one USER_ENTERED rule that changes text: a leading
// apostrophe only marks the cell as text and is not stored.
func interpret(row []string, mode table.InputMode) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		if mode == table.InputUserEntered {
			cell = strings.TrimPrefix(cell, "'")
		}
		out[i] = cell
	}
	return out
}

func copyGrid(g record.Grid) record.Grid {
	if g == nil {
		return nil
	}
	out := make(record.Grid, len(g))
	for i, row := range g {
		out[i] = append([]string(nil), row...)
	}
	return out
}
