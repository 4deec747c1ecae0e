// Package record converts typed records to and from grids of text cells.
//
// A Schema is an explicit, ordered list of fields. Encoding renders each
// record as one row in declared order; decoding treats row 0 as a header
// and locates every field by its name, so the physical column order of a
// stored grid does not have to match the schema.
package record

// Grid is a rectangular set of text cells, row major.
type Grid [][]string

// Width returns the cell count of the widest row.
func (g Grid) Width() int {
	w := 0
	for _, row := range g {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

type Schema[T any] struct {
	fields []Field[T]
}

// NewSchema validates the declared fields and returns a schema in that order.
func NewSchema[T any](fields ...Field[T]) (*Schema[T], error) {
	if len(fields) == 0 {
		return nil, &SchemaError{Reason: "no fields declared"}
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		switch {
		case f.name == "":
			return nil, &SchemaError{Reason: "field with empty name"}
		case seen[f.name]:
			return nil, &SchemaError{Field: f.name, Reason: "declared twice"}
		case f.encode == nil || f.decode == nil:
			return nil, &SchemaError{Field: f.name, Reason: "missing text codec"}
		}
		seen[f.name] = true
	}
	return &Schema[T]{fields: append([]Field[T](nil), fields...)}, nil
}

// MustSchema is like NewSchema but panics on an invalid declaration. It is
// meant for package level schema variables.
func MustSchema[T any](fields ...Field[T]) *Schema[T] {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema[T]) Len() int { return len(s.fields) }

// Header returns the field names in declared order.
func (s *Schema[T]) Header() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.name
	}
	return names
}

// Encode renders records as a grid with one row per record and no header row.
func (s *Schema[T]) Encode(records []T) (Grid, error) {
	grid := make(Grid, 0, len(records))
	for i, rec := range records {
		row, err := s.encode(i, rec)
		if err != nil {
			return nil, err
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// EncodeWithHeader is Encode with the header row prepended.
func (s *Schema[T]) EncodeWithHeader(records []T) (Grid, error) {
	rows, err := s.Encode(records)
	if err != nil {
		return nil, err
	}
	return append(Grid{s.Header()}, rows...), nil
}

// EncodeRow renders a single record as a bare data row in declared order.
func (s *Schema[T]) EncodeRow(rec T) ([]string, error) {
	return s.encode(0, rec)
}

func (s *Schema[T]) encode(i int, rec T) ([]string, error) {
	row := make([]string, len(s.fields))
	for j, f := range s.fields {
		cell, err := f.encode(&rec)
		if err != nil {
			return nil, &EncodingError{Row: i, Field: f.name, Err: err}
		}
		row[j] = cell
	}
	return row, nil
}

// Decode parses every row after the header into a record. Columns are
// matched to fields by header name; header columns the schema does not
// declare are ignored and, for a repeated name, the first column wins.
func (s *Schema[T]) Decode(grid Grid) ([]T, error) {
	if len(grid) == 0 {
		return nil, ErrEmptyGrid
	}
	header := grid[0]
	cols, err := s.columns(header)
	if err != nil {
		return nil, err
	}

	records := make([]T, 0, len(grid)-1)
	for i := 1; i < len(grid); i++ {
		row := grid[i]
		if len(row) != len(header) {
			return nil, &RowWidthMismatchError{Row: i, Want: len(header), Got: len(row)}
		}
		var rec T
		for j, f := range s.fields {
			raw := row[cols[j]]
			if raw == "" && f.optional {
				continue
			}
			if err := f.decode(&rec, raw); err != nil {
				return nil, &TypeMismatchError{Row: i, Field: f.name, Raw: raw, Err: err}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Schema[T]) columns(header []string) ([]int, error) {
	index := make(map[string]int, len(header))
	for j, name := range header {
		if _, ok := index[name]; !ok {
			index[name] = j
		}
	}
	cols := make([]int, len(s.fields))
	for i, f := range s.fields {
		j, ok := index[f.name]
		if !ok {
			return nil, &MissingColumnError{Name: f.name}
		}
		cols[i] = j
	}
	return cols, nil
}
