// Package table reads and writes typed records in a remote range through a
// GridStore. Operations hold no state between calls, take no locks and never
// retry: the first failing step aborts the operation.
package table

import (
	"context"

	"sheetstore/pkg/record"
)

type options struct {
	mode InputMode
}

// Option configures a Table.
type Option func(*options)

// WithInputMode sets how the store interprets written cells.
// The default is InputUserEntered.
func WithInputMode(mode InputMode) Option {
	return func(o *options) { o.mode = mode }
}

// Table binds a schema to a range.
type Table[T any] struct {
	store  GridStore
	rng    Range
	schema *record.Schema[T]
	mode   InputMode
}

// New returns a Table writing with InputUserEntered unless opts say otherwise.
func New[T any](store GridStore, rng Range, schema *record.Schema[T], opts ...Option) *Table[T] {
	o := options{mode: InputUserEntered}
	for _, opt := range opts {
		opt(&o)
	}
	return &Table[T]{store: store, rng: rng, schema: schema, mode: o.mode}
}

func (t *Table[T]) Range() Range { return t.rng }

func (t *Table[T]) Schema() *record.Schema[T] { return t.schema }

// Replace overwrites the range with exactly records. The range is cleared
// first so that a shorter record set leaves no trailing rows behind; the
// header row and data rows are then written from the origin. With no
// records only the clear is issued.
func (t *Table[T]) Replace(ctx context.Context, records []T) error {
	var grid record.Grid
	if len(records) > 0 {
		var err error
		if grid, err = t.schema.EncodeWithHeader(records); err != nil {
			return err
		}
	}

	if err := t.store.Clear(ctx, t.rng); err != nil {
		return &StoreError{Op: OpClear, Range: t.rng, Err: err}
	}
	if len(grid) == 0 {
		return nil
	}
	if err := t.store.Write(ctx, t.rng, grid, t.mode); err != nil {
		return &StoreError{Op: OpWrite, Range: t.rng, Err: err}
	}
	return nil
}

// Append adds rec as a new trailing row. No header is written: the range is
// expected to carry one from a previous Replace.
func (t *Table[T]) Append(ctx context.Context, rec T) error {
	row, err := t.schema.EncodeRow(rec)
	if err != nil {
		return err
	}
	if err := t.store.Append(ctx, t.rng, row, t.mode); err != nil {
		return &StoreError{Op: OpAppend, Range: t.rng, Err: err}
	}
	return nil
}

// Read fetches the whole range and decodes every row after the header.
func (t *Table[T]) Read(ctx context.Context) ([]T, error) {
	grid, ok, err := t.store.Read(ctx, t.rng)
	if err != nil {
		return nil, &StoreError{Op: OpRead, Range: t.rng, Err: err}
	}
	if !ok || len(grid) == 0 {
		return nil, ErrNoData
	}
	return t.schema.Decode(grid)
}

// Replace is a one-off Table.Replace.
func Replace[T any](ctx context.Context, store GridStore, rng Range, schema *record.Schema[T], records []T, opts ...Option) error {
	return New(store, rng, schema, opts...).Replace(ctx, records)
}

// Append is a one-off Table.Append.
func Append[T any](ctx context.Context, store GridStore, rng Range, schema *record.Schema[T], rec T, opts ...Option) error {
	return New(store, rng, schema, opts...).Append(ctx, rec)
}

// Read is a one-off Table.Read.
func Read[T any](ctx context.Context, store GridStore, rng Range, schema *record.Schema[T]) ([]T, error) {
	return New(store, rng, schema).Read(ctx)
}
