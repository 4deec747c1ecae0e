package record

import (
	"encoding"
	"errors"
	"math"
	"strconv"

	"golang.org/x/exp/constraints"
)

// Field declares one named column of a record type T together with the
// text codec used to render it into a cell and parse it back.
type Field[T any] struct {
	name     string
	encode   func(*T) (string, error)
	decode   func(*T, string) error
	optional bool
}

// Name returns the column header for the field.
func (f Field[T]) Name() string { return f.name }

// Optional returns a copy of the field for which an empty cell decodes to
// the zero value instead of failing to parse.
func (f Field[T]) Optional() Field[T] {
	f.optional = true
	return f
}

// Func declares a field with a caller-supplied text codec.
func Func[T any](name string, encode func(*T) (string, error), decode func(*T, string) error) Field[T] {
	return Field[T]{name: name, encode: encode, decode: decode}
}

// String declares a field stored verbatim.
func String[T any](name string, ptr func(*T) *string) Field[T] {
	return Func(name,
		func(r *T) (string, error) { return *ptr(r), nil },
		func(r *T, s string) error {
			*ptr(r) = s
			return nil
		},
	)
}

// Int declares a signed integer field rendered in base 10. Values that
// overflow N fail to decode.
func Int[T any, N constraints.Signed](name string, ptr func(*T) *N) Field[T] {
	return Func(name,
		func(r *T) (string, error) { return strconv.FormatInt(int64(*ptr(r)), 10), nil },
		func(r *T, s string) error {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return err
			}
			n := N(v)
			if int64(n) != v {
				return strconv.ErrRange
			}
			*ptr(r) = n
			return nil
		},
	)
}

// Uint is the unsigned counterpart of Int.
func Uint[T any, N constraints.Unsigned](name string, ptr func(*T) *N) Field[T] {
	return Func(name,
		func(r *T) (string, error) { return strconv.FormatUint(uint64(*ptr(r)), 10), nil },
		func(r *T, s string) error {
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return err
			}
			n := N(v)
			if uint64(n) != v {
				return strconv.ErrRange
			}
			*ptr(r) = n
			return nil
		},
	)
}

// Float renders with the shortest representation that parses back to the
// same value.
func Float[T any, N constraints.Float](name string, ptr func(*T) *N) Field[T] {
	bits := floatBits[N]()
	return Func(name,
		func(r *T) (string, error) {
			v := float64(*ptr(r))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return "", errors.New("value is not finite")
			}
			return strconv.FormatFloat(v, 'g', -1, bits), nil
		},
		func(r *T, s string) error {
			v, err := strconv.ParseFloat(s, bits)
			if err != nil {
				return err
			}
			*ptr(r) = N(v)
			return nil
		},
	)
}

// Bool encodes as true/false and accepts any strconv.ParseBool spelling,
// including the TRUE/FALSE a spreadsheet renders.
func Bool[T any](name string, ptr func(*T) *bool) Field[T] {
	return Func(name,
		func(r *T) (string, error) { return strconv.FormatBool(*ptr(r)), nil },
		func(r *T, s string) error {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			*ptr(r) = v
			return nil
		},
	)
}

// TextValue is implemented by pointers to types such as time.Time and
// uuid.UUID.
type TextValue interface {
	encoding.TextMarshaler
	encoding.TextUnmarshaler
}

// Text declares a field using the value's own MarshalText and UnmarshalText.
func Text[T any](name string, ptr func(*T) TextValue) Field[T] {
	return Func(name,
		func(r *T) (string, error) {
			b, err := ptr(r).MarshalText()
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
		func(r *T, s string) error { return ptr(r).UnmarshalText([]byte(s)) },
	)
}

func floatBits[N constraints.Float]() int {
	var probe N = math.MaxFloat32
	probe *= 2
	if math.IsInf(float64(probe), 0) {
		return 32
	}
	return 64
}
