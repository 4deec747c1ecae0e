package table

import (
	"context"
	"errors"
	"fmt"

	"sheetstore/pkg/record"
)

// Range addresses a named tab (or named range) inside a document.
type Range struct {
	Document string
	Name     string
}

func (r Range) String() string {
	return r.Document + "/" + r.Name
}

// InputMode tells the store how to interpret the text cells it receives.
type InputMode string

const (
	// InputRaw stores every cell as literal text.
	InputRaw InputMode = "RAW"
	// InputUserEntered lets the store coerce cell text as if typed by a user,
	// so "123" becomes a number and "TRUE" a boolean.
	InputUserEntered InputMode = "USER_ENTERED"
)

func (m InputMode) Valid() bool {
	return m == InputRaw || m == InputUserEntered
}

// GridStore performs the network calls against a range.
type GridStore interface {
	Clear(ctx context.Context, rng Range) error
	// Write replaces cell contents starting at the origin of rng.
	Write(ctx context.Context, rng Range, grid record.Grid, mode InputMode) error
	// Append adds row after the existing content of rng.
	Append(ctx context.Context, rng Range, row []string, mode InputMode) error
	// Read returns the full content of rng. ok is false when the range holds
	// no values at all.
	Read(ctx context.Context, rng Range) (grid record.Grid, ok bool, err error)
}

const (
	OpClear  = "clear"
	OpWrite  = "write"
	OpAppend = "append"
	OpRead   = "read"
)

// ErrNoData is returned by Read when the range has no content to decode.
var ErrNoData = errors.New("range has no data")

// StoreError wraps a failure returned by the GridStore. The original error
// is available through errors.Unwrap.
type StoreError struct {
	Op    string
	Range Range
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Range, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
