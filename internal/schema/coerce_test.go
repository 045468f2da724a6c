package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tsq/internal/ir"
)

func TestCoerceElement(t *testing.T) {
	s := testSchema()
	born := time.Date(1990, 4, 2, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  any
		prop Property
		want ir.Value
	}{
		{"int from yaml", 18, Property{Name: "age", Type: TypeInt}, ir.Int(18)},
		{"int from json", float64(18), Property{Name: "age", Type: TypeInt}, ir.Int(18)},
		{"int from json.Number", json.Number("7"), Property{Name: "age", Type: TypeInt}, ir.Int(7)},
		{"double from int", 3, Property{Name: "w", Type: TypeDouble}, ir.Double(3)},
		{"float", 1.5, Property{Name: "w", Type: TypeFloat}, ir.Float(1.5)},
		{"bool", true, Property{Name: "ok", Type: TypeBool}, ir.Bool(true)},
		{"string", "Rex", Property{Name: "name", Type: TypeString}, ir.String("Rex")},
		{"binary base64", "AQI=", Property{Name: "b", Type: TypeBinary}, ir.Binary{1, 2}},
		{"date string", "1990-04-02T08:00:00Z", Property{Name: "born", Type: TypeDate}, ir.NewDate(born)},
		{"date time", born, Property{Name: "born", Type: TypeDate}, ir.NewDate(born)},
		{"decimal string", "12.50", Property{Name: "d", Type: TypeDecimal}, ir.MustDecimal("12.50")},
		{"decimal number", 2.5, Property{Name: "d", Type: TypeDecimal}, ir.MustDecimal("2.5")},
		{"enum", "happy", Property{Name: "mood", Type: TypeEnum, Enum: "Mood"}, ir.Enum{Type: "Mood", Raw: ir.String("happy")}},
		{"optional null", nil, Property{Name: "n", Type: TypeString, Optional: true}, ir.Null{}},
		{"link by id", "p1", Property{Name: "owner", Type: TypeObject, ObjectType: "Person", Optional: true}, ir.ObjectRef{Type: "Person", ID: "p1"}},
		{
			"link mapping",
			map[string]any{"type": "Person", "id": "p2"},
			Property{Name: "owner", Type: TypeObject, ObjectType: "Person", Optional: true},
			ir.ObjectRef{Type: "Person", ID: "p2"},
		},
		{
			"embedded in schema order",
			map[string]any{"zip": "0150", "city": "Oslo"},
			Property{Name: "address", Type: TypeObject, ObjectType: "Address", Optional: true},
			ir.Embedded{Type: "Address", Fields: []ir.Field{{Name: "city", Value: ir.String("Oslo")}, {Name: "zip", Value: ir.String("0150")}}},
		},
		{"mixed int", 4, Property{Name: "x", Type: TypeMixed}, ir.Int(4)},
		{"mixed whole json number", float64(4), Property{Name: "x", Type: TypeMixed}, ir.Int(4)},
		{"mixed double", 4.5, Property{Name: "x", Type: TypeMixed}, ir.Double(4.5)},
		{
			"mixed nested",
			[]any{"a", map[string]any{"k": []any{true}}},
			Property{Name: "x", Type: TypeMixed},
			ir.List{ir.String("a"), ir.Map{"k": ir.List{ir.Bool(true)}}},
		},
		{
			"mixed tagged decimal",
			map[string]any{"$type": "decimal", "value": "1.25"},
			Property{Name: "x", Type: TypeMixed},
			ir.MustDecimal("1.25"),
		},
		{
			"mixed tagged object",
			map[string]any{"$type": "object", "value": map[string]any{"type": "Dog", "id": "d1"}},
			Property{Name: "x", Type: TypeMixed},
			ir.ObjectRef{Type: "Dog", ID: "d1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.CoerceElement(tt.raw, tt.prop)
			require.NoError(t, err)
			assert.True(t, ir.Equal(tt.want, got), "want %s, got %s", ir.Format(tt.want), ir.Format(got))
		})
	}
}

func TestCoerceElement_Errors(t *testing.T) {
	s := testSchema()

	tests := []struct {
		name string
		raw  any
		prop Property
		msg  string
	}{
		{"null for required", nil, Property{Name: "age", Type: TypeInt}, "null is not allowed"},
		{"fractional int", 1.5, Property{Name: "age", Type: TypeInt}, "cannot use"},
		{"string for int", "18", Property{Name: "age", Type: TypeInt}, "cannot use"},
		{"bad date", "yesterday", Property{Name: "born", Type: TypeDate}, "invalid RFC 3339"},
		{"bad base64", "!!", Property{Name: "b", Type: TypeBinary}, "invalid base64"},
		{"unknown enum case", "angry", Property{Name: "mood", Type: TypeEnum, Enum: "Mood"}, "not a case of enum Mood"},
		{"wrong link type", map[string]any{"type": "Dog", "id": "d1"}, Property{Name: "owner", Type: TypeObject, ObjectType: "Person"}, "link to Person"},
		{"bad tagged kind", map[string]any{"$type": "blob"}, Property{Name: "x", Type: TypeMixed}, "unknown $type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CoerceElement(tt.raw, tt.prop)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCoerce_Collections(t *testing.T) {
	s := testSchema()

	got, err := s.Coerce([]any{"d1", "d2"}, Property{Name: "dogs", Type: TypeObject, ObjectType: "Dog", Collection: CollectionList})
	require.NoError(t, err)
	assert.Equal(t, ir.List{ir.ObjectRef{Type: "Dog", ID: "d1"}, ir.ObjectRef{Type: "Dog", ID: "d2"}}, got)

	got, err = s.Coerce(map[string]any{"a": 1.5}, Property{Name: "prices", Type: TypeDouble, Collection: CollectionMap})
	require.NoError(t, err)
	assert.Equal(t, ir.Map{"a": ir.Double(1.5)}, got)

	got, err = s.Coerce(nil, Property{Name: "tags", Type: TypeString, Collection: CollectionSet})
	require.NoError(t, err)
	assert.Equal(t, ir.List{}, got)

	_, err = s.Coerce("x", Property{Name: "tags", Type: TypeString, Collection: CollectionSet})
	assert.ErrorContains(t, err, "expected a sequence")

	_, err = s.Coerce([]any{1, "two"}, Property{Name: "scores", Type: TypeInt, Collection: CollectionList})
	assert.ErrorContains(t, err, "scores[1]")
}

func TestCoerceObject(t *testing.T) {
	s := testSchema()

	got, err := s.CoerceObject("Person", map[string]any{
		"age":  30,
		"name": "Ada",
		"dogs": []any{"d1"},
	})
	require.NoError(t, err)

	want := ir.Embedded{Type: "Person", Fields: []ir.Field{
		{Name: "name", Value: ir.String("Ada")},
		{Name: "age", Value: ir.Int(30)},
		{Name: "mood", Value: ir.Null{}},
		{Name: "address", Value: ir.Null{}},
		{Name: "dogs", Value: ir.List{ir.ObjectRef{Type: "Dog", ID: "d1"}}},
	}}
	assert.Equal(t, want, got)

	_, err = s.CoerceObject("Person", map[string]any{"ssn": "x"})
	assert.ErrorContains(t, err, `unknown property "ssn"`)

	_, err = s.CoerceObject("Cat", nil)
	assert.ErrorContains(t, err, `unknown object type "Cat"`)

	_, err = s.CoerceObject("Person", map[string]any{"age": "old"})
	assert.ErrorContains(t, err, "Person.age")
}

func TestZeroValue(t *testing.T) {
	assert.Equal(t, ir.Int(0), ZeroValue(Property{Type: TypeInt}))
	assert.Equal(t, ir.Null{}, ZeroValue(Property{Type: TypeInt, Optional: true}))
	assert.Equal(t, ir.List{}, ZeroValue(Property{Type: TypeInt, Collection: CollectionSet}))
	assert.Equal(t, ir.Map{}, ZeroValue(Property{Type: TypeInt, Collection: CollectionMap}))
}
