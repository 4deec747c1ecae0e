package main

import (
	"context"
	"fmt"

	"sheetstore/pkg/record"
	"sheetstore/pkg/table"

	log "github.com/sirupsen/logrus"
)

type exampleObject struct {
	Name         string
	NumberOfFoos uint64
	NumberOfBars float64
}

var exampleSchema = record.MustSchema(
	record.String("name", func(o *exampleObject) *string { return &o.Name }),
	record.Uint("number_of_foos", func(o *exampleObject) *uint64 { return &o.NumberOfFoos }),
	record.Float("number_of_bars", func(o *exampleObject) *float64 { return &o.NumberOfBars }),
)

const appendCount = 5

func generateSampleObjects(n int) []exampleObject {
	objects := make([]exampleObject, n)
	for i := range objects {
		objects[i] = exampleObject{
			Name:         fmt.Sprintf("Object %d", i),
			NumberOfFoos: uint64(i) * 10,
			NumberOfBars: float64(i) + 0.5,
		}
	}
	return objects
}

// runSync writes all but the last few sample objects, appends the rest one
// at a time, then reads the range back and compares.
func runSync(ctx context.Context, store table.GridStore, rng table.Range, n int, mode table.InputMode) error {
	// Replace must write at least one row so the range gets its header.
	if n <= appendCount {
		return fmt.Errorf("need more than %d objects, got %d", appendCount, n)
	}
	objects := generateSampleObjects(n)
	tbl := table.New(store, rng, exampleSchema, table.WithInputMode(mode))

	split := n - appendCount
	if err := tbl.Replace(ctx, objects[:split]); err != nil {
		return err
	}
	log.Printf("Wrote %d rows to %s", split, rng)

	for _, obj := range objects[split:] {
		if err := tbl.Append(ctx, obj); err != nil {
			return err
		}
	}
	log.Printf("Appended %d rows to %s", appendCount, rng)

	returned, err := tbl.Read(ctx)
	if err != nil {
		return err
	}
	if len(returned) != len(objects) {
		return fmt.Errorf("read %d rows, wrote %d", len(returned), len(objects))
	}
	for i := range objects {
		if returned[i] != objects[i] {
			return fmt.Errorf("row %d: read %+v, wrote %+v", i, returned[i], objects[i])
		}
	}
	log.Printf("Read back %d matching rows", len(returned))
	return nil
}
