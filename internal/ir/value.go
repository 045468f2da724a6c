package ir

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"time"
	"unicode/utf16"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
)

// Kind identifies the variant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDouble
	KindString
	KindBinary
	KindDate
	KindDecimal
	KindUUID
	KindEnum
	KindObjectRef
	KindEmbedded
	KindList
	KindMap
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindDouble:    "double",
	KindString:    "string",
	KindBinary:    "binary",
	KindDate:      "date",
	KindDecimal:   "decimal",
	KindUUID:      "uuid",
	KindEnum:      "enum",
	KindObjectRef: "object",
	KindEmbedded:  "embedded",
	KindList:      "list",
	KindMap:       "map",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// Value is a sealed interface over the closed set of operand values.
// List and Map only appear as payloads of the dynamic "any" type or as the
// contents of collection properties.
type Value interface {
	Kind() Kind
	value() // sealed
}

// Null is the null sentinel. A comparison against null still binds an argument.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Int is a 64-bit integer value.
type Int int64

// Float is a single-precision float value.
type Float float32

// Double is a double-precision float value.
type Double float64

// String is a string value.
type String string

// Binary is an opaque byte string.
type Binary []byte

// Date is a point in time.
type Date time.Time

// UUID is a 128-bit universally unique identifier.
type UUID uuid.UUID

// Decimal is an immutable fixed-decimal value backed by apd.
// The zero Decimal is 0.
type Decimal struct {
	d *apd.Decimal
}

// Enum is an enumeration case, compared by its raw value.
type Enum struct {
	Type string
	Raw  Value // Int or String
}

// ObjectRef references a stored top-level object. Equality is same ID or,
// when PrimaryKey is set, same primary key.
type ObjectRef struct {
	Type       string
	ID         string
	PrimaryKey Value
}

// Field is one persisted property of an Embedded snapshot.
type Field struct {
	Name  string
	Value Value
}

// Embedded is a value snapshot of an embedded object. Embedded objects have
// no identity; Fields follow the schema's declaration order.
type Embedded struct {
	Type   string
	Fields []Field
}

// List is an ordered sequence of values.
type List []Value

// Map is a string-keyed dictionary. Use SortedKeys() for deterministic iteration.
type Map map[string]Value

func (Null) Kind() Kind      { return KindNull }
func (Bool) Kind() Kind      { return KindBool }
func (Int) Kind() Kind       { return KindInt }
func (Float) Kind() Kind     { return KindFloat }
func (Double) Kind() Kind    { return KindDouble }
func (String) Kind() Kind    { return KindString }
func (Binary) Kind() Kind    { return KindBinary }
func (Date) Kind() Kind      { return KindDate }
func (Decimal) Kind() Kind   { return KindDecimal }
func (UUID) Kind() Kind      { return KindUUID }
func (Enum) Kind() Kind      { return KindEnum }
func (ObjectRef) Kind() Kind { return KindObjectRef }
func (Embedded) Kind() Kind  { return KindEmbedded }
func (List) Kind() Kind      { return KindList }
func (Map) Kind() Kind       { return KindMap }

func (Null) value()      {}
func (Bool) value()      {}
func (Int) value()       {}
func (Float) value()     {}
func (Double) value()    {}
func (String) value()    {}
func (Binary) value()    {}
func (Date) value()      {}
func (Decimal) value()   {}
func (UUID) value()      {}
func (Enum) value()      {}
func (ObjectRef) value() {}
func (Embedded) value()  {}
func (List) value()      {}
func (Map) value()       {}

// ParseDecimal parses a decimal literal such as "12.50" or "-1E-3".
func ParseDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return Decimal{d: d}, nil
}

// MustDecimal is like ParseDecimal but panics on error.
// Use only in tests or with constant input.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromApd copies an apd decimal into an immutable Decimal.
func DecimalFromApd(src *apd.Decimal) Decimal {
	d := new(apd.Decimal)
	d.Set(src)
	return Decimal{d: d}
}

// Apd returns a copy of the underlying decimal.
func (d Decimal) Apd() *apd.Decimal {
	out := new(apd.Decimal)
	if d.d != nil {
		out.Set(d.d)
	}
	return out
}

func (d Decimal) String() string {
	if d.d == nil {
		return "0"
	}
	return d.d.String()
}

// Cmp compares two decimals numerically.
func (d Decimal) Cmp(other Decimal) int {
	return d.Apd().Cmp(other.Apd())
}

// Time returns the date as a time.Time.
func (d Date) Time() time.Time { return time.Time(d) }

// NewDate returns a Date truncated to millisecond precision in UTC, which is
// the precision the query engine stores.
func NewDate(t time.Time) Date {
	return Date(t.UTC().Truncate(time.Millisecond))
}

// Key identifies the referenced object: its ID, or the primary key rendered
// by KeyText when no ID is set.
func (r ObjectRef) Key() string {
	if r.ID != "" || IsNull(r.PrimaryKey) {
		return r.ID
	}
	return KeyText(r.PrimaryKey)
}

// KeyText renders a primary key value as an object id.
func KeyText(v Value) string {
	switch v := v.(type) {
	case String:
		return string(v)
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case UUID:
		return v.String()
	}
	return Format(v)
}

// Field returns the named field of an embedded snapshot.
func (e Embedded) Field(name string) (Value, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// IsNull reports whether v is nil or the Null sentinel.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// IsNumeric reports whether v is an int, float, double or decimal.
func IsNumeric(v Value) bool {
	switch v.(type) {
	case Int, Float, Double, Decimal:
		return true
	}
	return false
}

// IsOrderable reports whether v can take part in <, <=, >, >= comparisons.
func IsOrderable(v Value) bool {
	if IsNumeric(v) {
		return true
	}
	_, ok := v.(Date)
	return ok
}

// Equal reports structural equality. Numeric values of different kinds are
// not equal here; the execution engine performs cross-kind numeric comparison.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Bool, Int, Float, Double, String, UUID:
		return a == b
	case Binary:
		return bytes.Equal(av, b.(Binary))
	case Date:
		return av.Time().Equal(b.(Date).Time())
	case Decimal:
		return av.Cmp(b.(Decimal)) == 0
	case Enum:
		bv := b.(Enum)
		return av.Type == bv.Type && Equal(av.Raw, bv.Raw)
	case ObjectRef:
		bv := b.(ObjectRef)
		if av.Type != bv.Type {
			return false
		}
		if av.PrimaryKey != nil && bv.PrimaryKey != nil {
			return Equal(av.PrimaryKey, bv.PrimaryKey)
		}
		return av.ID == bv.ID
	case Embedded:
		bv := b.(Embedded)
		if av.Type != bv.Type || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for i := range av.Fields {
			if av.Fields[i].Name != bv.Fields[i].Name || !Equal(av.Fields[i].Value, bv.Fields[i].Value) {
				return false
			}
		}
		return true
	case List:
		bv := b.(List)
		return slices.EqualFunc(av, bv, Equal)
	case Map:
		bv := b.(Map)
		if len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	}
	return false
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for astral characters.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
