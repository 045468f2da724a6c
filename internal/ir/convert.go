package ir

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
)

// MaxDepth bounds the nesting of List and Map values.
const MaxDepth = 64

// ErrTooDeep is returned when a value nests deeper than MaxDepth. Converting
// a Go structure that contains itself always ends here.
var ErrTooDeep = errors.New("value nesting exceeds maximum depth")

// Enumerated is implemented by application enum types. RawValue must return
// an integer or a string.
type Enumerated interface {
	EnumType() string
	RawValue() any
}

// Referencer is implemented by application model types that can stand in for
// a stored object in a predicate.
type Referencer interface {
	ObjectType() string
	ObjectID() string
}

// PrimaryKeyer is optionally implemented by a Referencer whose type declares a
// primary key.
type PrimaryKeyer interface {
	PrimaryKey() any
}

// Of converts a native Go value to a Value.
func Of(v any) (Value, error) {
	return convert(v, 0)
}

// MustOf is like Of but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustOf(v any) Value {
	val, err := Of(v)
	if err != nil {
		panic(err)
	}
	return val
}

func convert(v any, depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		if d := Depth(val); depth+d > MaxDepth {
			return nil, ErrTooDeep
		}
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return uintValue(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return uintValue(val)
	case float32:
		return Float(val), nil
	case float64:
		return Double(val), nil
	case string:
		return String(val), nil
	case []byte:
		return Binary(val), nil
	case time.Time:
		return NewDate(val), nil
	case uuid.UUID:
		return UUID(val), nil
	case *apd.Decimal:
		if val == nil {
			return Null{}, nil
		}
		return DecimalFromApd(val), nil
	case apd.Decimal:
		return DecimalFromApd(&val), nil
	case Enumerated:
		raw, err := convert(val.RawValue(), depth+1)
		if err != nil {
			return nil, fmt.Errorf("enum %s: %w", val.EnumType(), err)
		}
		switch raw.(type) {
		case Int, String:
		default:
			return nil, fmt.Errorf("enum %s: raw value must be int or string, got %s", val.EnumType(), raw.Kind())
		}
		return Enum{Type: val.EnumType(), Raw: raw}, nil
	case Referencer:
		ref := ObjectRef{Type: val.ObjectType(), ID: val.ObjectID()}
		if pk, ok := val.(PrimaryKeyer); ok {
			key, err := convert(pk.PrimaryKey(), depth+1)
			if err != nil {
				return nil, fmt.Errorf("primary key of %s: %w", ref.Type, err)
			}
			ref.PrimaryKey = key
		}
		return ref, nil
	case []any:
		return convertSlice(val, depth)
	case []string:
		return convertSlice(val, depth)
	case []int:
		return convertSlice(val, depth)
	case []int64:
		return convertSlice(val, depth)
	case []float64:
		return convertSlice(val, depth)
	case []bool:
		return convertSlice(val, depth)
	case []Value:
		return convertSlice(val, depth)
	case map[string]any:
		out := make(Map, len(val))
		for k, elem := range val {
			conv, err := convert(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			out[k] = conv
		}
		return out, nil
	default:
		return convertReflect(v, depth)
	}
}

// convertReflect handles named types over supported kinds, such as
// `type Age int` or `[]Mood`.
func convertReflect(v any, depth int) (Value, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uintValue(rv.Uint())
	case reflect.Float32:
		return Float(rv.Float()), nil
	case reflect.Float64:
		return Double(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		out := make(List, rv.Len())
		for i := range rv.Len() {
			conv, err := convert(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		out := make(Map, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			conv, err := convert(iter.Value().Interface(), depth+1)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			out[k] = conv
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported operand type: %T", v)
}

func convertSlice[T any](elems []T, depth int) (Value, error) {
	out := make(List, len(elems))
	for i, elem := range elems {
		conv, err := convert(elem, depth+1)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = conv
	}
	return out, nil
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("unsigned value %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// Depth returns the nesting depth of v: 0 for scalars, 1 + deepest child for
// lists, maps and embedded snapshots. Measurement stops once MaxDepth is
// exceeded, so a List that contains itself reports MaxDepth+1.
func Depth(v Value) int {
	return depth(v, 0)
}

func depth(v Value, level int) int {
	if level > MaxDepth {
		return 0
	}
	d := 0
	switch val := v.(type) {
	case List:
		for _, elem := range val {
			d = max(d, depth(elem, level+1))
		}
	case Map:
		for _, elem := range val {
			d = max(d, depth(elem, level+1))
		}
	case Embedded:
		for _, f := range val.Fields {
			d = max(d, depth(f.Value, level+1))
		}
	default:
		return 0
	}
	return d + 1
}
