package record

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoding matches every *EncodingError.
	ErrEncoding = errors.New("record encoding failed")
	// ErrEmptyGrid is returned by Decode when there is no header row to consult.
	ErrEmptyGrid = errors.New("grid has no header row")
	// ErrMissingColumn matches every *MissingColumnError.
	ErrMissingColumn = errors.New("missing column")
	// ErrTypeMismatch matches every *TypeMismatchError.
	ErrTypeMismatch = errors.New("cell type mismatch")
	// ErrRowWidthMismatch matches every *RowWidthMismatchError.
	ErrRowWidthMismatch = errors.New("row width mismatch")
)

// EncodingError reports a field value that could not be rendered to text.
type EncodingError struct {
	Row   int
	Field string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode row %d field %q: %v", e.Row, e.Field, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// MissingColumnError reports a schema field that is absent from the header row.
type MissingColumnError struct {
	Name string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Name)
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

// TypeMismatchError reports a cell whose text cannot be parsed into the
// field's declared type. Row is the grid row index, so the first data row is 1.
type TypeMismatchError struct {
	Row   int
	Field string
	Raw   string
	Err   error
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("row %d field %q: cannot parse %q: %v", e.Row, e.Field, e.Raw, e.Err)
}

func (e *TypeMismatchError) Unwrap() error { return e.Err }

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// RowWidthMismatchError reports a data row whose cell count differs from the header's.
type RowWidthMismatchError struct {
	Row  int
	Want int
	Got  int
}

func (e *RowWidthMismatchError) Error() string {
	return fmt.Sprintf("row %d has %d cells, header has %d", e.Row, e.Got, e.Want)
}

func (e *RowWidthMismatchError) Is(target error) bool { return target == ErrRowWidthMismatch }

// SchemaError reports an invalid field declaration.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "invalid schema: " + e.Reason
	}
	return fmt.Sprintf("invalid schema field %q: %s", e.Field, e.Reason)
}
