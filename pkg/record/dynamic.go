package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Field types understood by DynamicSchema.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeUint   = "uint"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeTime   = "time"
	TypeUUID   = "uuid"
)

// Values is a record whose schema is only known at runtime. Values hold the
// canonical Go type of their field: string, int64, uint64, float64, bool,
// time.Time or uuid.UUID.
type Values map[string]any

type FieldSpec struct {
	Name     string
	Type     string
	Optional bool
}

// DynamicSchema builds a schema over Values from declared field specs.
func DynamicSchema(specs []FieldSpec) (*Schema[Values], error) {
	fields := make([]Field[Values], 0, len(specs))
	for _, spec := range specs {
		if !validType(spec.Type) {
			return nil, &SchemaError{Field: spec.Name, Reason: fmt.Sprintf("unknown type %q", spec.Type)}
		}
		f := spec.field()
		if spec.Optional {
			f = f.Optional()
		}
		fields = append(fields, f)
	}
	return NewSchema(fields...)
}

func validType(t string) bool {
	switch t {
	case TypeString, TypeInt, TypeUint, TypeFloat, TypeBool, TypeTime, TypeUUID:
		return true
	}
	return false
}

func (spec FieldSpec) field() Field[Values] {
	name := spec.Name
	return Func(name,
		func(r *Values) (string, error) {
			v, ok := (*r)[name]
			if !ok || v == nil {
				if spec.Optional {
					return "", nil
				}
				return "", errors.New("no value")
			}
			c, err := spec.Coerce(v)
			if err != nil {
				return "", err
			}
			return formatCanonical(c), nil
		},
		func(r *Values, s string) error {
			c, err := spec.Coerce(s)
			if err != nil {
				return err
			}
			if *r == nil {
				*r = Values{}
			}
			(*r)[name] = c
			return nil
		},
	)
}

// Coerce converts v to the canonical Go type for the field. Strings are
// parsed, so Coerce also serves as the cell parser; JSON numbers and
// float64 values are accepted for numeric fields when they fit exactly.
func (spec FieldSpec) Coerce(v any) (any, error) {
	if n, ok := v.(json.Number); ok {
		v = n.String()
	}
	switch spec.Type {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeInt:
		switch t := v.(type) {
		case string:
			return strconv.ParseInt(t, 10, 64)
		case int:
			return int64(t), nil
		case int32:
			return int64(t), nil
		case int64:
			return t, nil
		case float64:
			if t == math.Trunc(t) && t >= math.MinInt64 && t < math.MaxInt64 {
				return int64(t), nil
			}
			return nil, fmt.Errorf("%v is not an integer", t)
		}
	case TypeUint:
		switch t := v.(type) {
		case string:
			return strconv.ParseUint(t, 10, 64)
		case uint:
			return uint64(t), nil
		case uint64:
			return t, nil
		case int:
			if t >= 0 {
				return uint64(t), nil
			}
			return nil, fmt.Errorf("%d is negative", t)
		case float64:
			if t == math.Trunc(t) && t >= 0 && t < math.MaxUint64 {
				return uint64(t), nil
			}
			return nil, fmt.Errorf("%v is not an unsigned integer", t)
		}
	case TypeFloat:
		var f float64
		switch t := v.(type) {
		case string:
			var err error
			if f, err = strconv.ParseFloat(t, 64); err != nil {
				return nil, err
			}
		case float64:
			f = t
		case float32:
			f = float64(t)
		case int:
			f = float64(t)
		case int64:
			f = float64(t)
		default:
			return nil, fmt.Errorf("cannot use %T as %s", v, spec.Type)
		}
		// JSON and the store have no spelling for these.
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%v is not finite", f)
		}
		return f, nil
	case TypeBool:
		switch t := v.(type) {
		case string:
			return strconv.ParseBool(t)
		case bool:
			return t, nil
		}
	case TypeTime:
		switch t := v.(type) {
		case string:
			return time.Parse(time.RFC3339Nano, t)
		case time.Time:
			return t, nil
		}
	case TypeUUID:
		switch t := v.(type) {
		case string:
			return uuid.Parse(t)
		case uuid.UUID:
			return t, nil
		}
	default:
		return nil, fmt.Errorf("unknown type %q", spec.Type)
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, spec.Type)
}

func formatCanonical(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case uuid.UUID:
		return t.String()
	}
	return fmt.Sprint(v)
}
