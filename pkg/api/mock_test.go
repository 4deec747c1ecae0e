package api

import (
	"context"

	"sheetstore/pkg/record"
	"sheetstore/pkg/table"
)

type mockStore struct {
	ClearFunc  func(ctx context.Context, rng table.Range) error
	WriteFunc  func(ctx context.Context, rng table.Range, grid record.Grid, mode table.InputMode) error
	AppendFunc func(ctx context.Context, rng table.Range, row []string, mode table.InputMode) error
	ReadFunc   func(ctx context.Context, rng table.Range) (record.Grid, bool, error)
}

func (m *mockStore) Clear(ctx context.Context, rng table.Range) error {
	return m.ClearFunc(ctx, rng)
}
func (m *mockStore) Write(ctx context.Context, rng table.Range, grid record.Grid, mode table.InputMode) error {
	return m.WriteFunc(ctx, rng, grid, mode)
}
func (m *mockStore) Append(ctx context.Context, rng table.Range, row []string, mode table.InputMode) error {
	return m.AppendFunc(ctx, rng, row, mode)
}
func (m *mockStore) Read(ctx context.Context, rng table.Range) (record.Grid, bool, error) {
	return m.ReadFunc(ctx, rng)
}
