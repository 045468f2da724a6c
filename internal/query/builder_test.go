package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/testutil"
)

func newBuilder(root string) *Builder {
	return NewBuilder(keypath.NewResolver(testutil.PeopleSchema()), root)
}

func requireExpression(t *testing.T, n Node) *Expression {
	t.Helper()
	if inv, ok := n.(Invalid); ok {
		require.FailNow(t, "unexpected invalid node", inv.Err.Error())
	}
	e, ok := n.(*Expression)
	require.True(t, ok, "expected *Expression, got %T", n)
	return e
}

func requireInvalid(t *testing.T, n Node) error {
	t.Helper()
	inv, ok := n.(Invalid)
	require.True(t, ok, "expected Invalid, got %T", n)
	require.Error(t, inv.Err)
	return inv.Err
}

func TestBuilder_Comparisons(t *testing.T) {
	b := newBuilder("Person")

	e := requireExpression(t, b.Path("age").GreaterEqual(18))
	assert.Equal(t, OpGreaterEqual, e.Op)
	assert.Equal(t, "age", e.Path.String())
	assert.Equal(t, []ir.Value{ir.Int(18)}, e.Literals())

	e = requireExpression(t, b.Path("height").Less(1.8))
	assert.Equal(t, []ir.Value{ir.Double(1.8)}, e.Literals())

	e = requireExpression(t, b.Path("balance").Greater(ir.MustDecimal("10.5")))
	assert.Equal(t, OpGreater, e.Op)

	e = requireExpression(t, b.Path("born").LessEqual(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, ir.KindDate, e.Literals()[0].Kind())

	e = requireExpression(t, b.Path("nickname").IsNull())
	assert.Equal(t, OpEqual, e.Op)
	assert.Equal(t, []ir.Value{ir.Null{}}, e.Literals())

	e = requireExpression(t, b.Path("partner").IsNotNull())
	assert.Equal(t, OpNotEqual, e.Op)
}

func TestBuilder_EnumNormalization(t *testing.T) {
	b := newBuilder("Person")

	e := requireExpression(t, b.Path("mood").Equal("happy"))
	assert.Equal(t, []ir.Value{ir.Enum{Type: "Mood", Raw: ir.String("happy")}}, e.Literals())

	e = requireExpression(t, b.Path("level").In([]int{1, 3}))
	assert.Equal(t, []ir.Value{ir.List{
		ir.Enum{Type: "Priority", Raw: ir.Int(1)},
		ir.Enum{Type: "Priority", Raw: ir.Int(3)},
	}}, e.Literals())

	err := requireInvalid(t, b.Path("mood").Equal("angry"))
	assert.True(t, IsTypeMismatchError(err))
}

func TestBuilder_Ranges(t *testing.T) {
	b := newBuilder("Person")

	e := requireExpression(t, b.Path("age").Between(18, 65))
	assert.Equal(t, OpRangeClosed, e.Op)
	assert.Equal(t, []ir.Value{ir.Int(18), ir.Int(65)}, e.Literals())

	e = requireExpression(t, b.Path("age").InRange(18, 65.5))
	assert.Equal(t, OpRangeHalfOpen, e.Op)

	err := requireInvalid(t, b.Path("age").Between(18, time.Now()))
	assert.True(t, IsTypeMismatchError(err))

	err = requireInvalid(t, b.Path("weight").Between(nil, 3))
	assert.True(t, IsTypeMismatchError(err))
}

func TestBuilder_Contains(t *testing.T) {
	b := newBuilder("Person")

	e := requireExpression(t, b.Path("name").Contains("ad", CaseInsensitive))
	assert.Equal(t, OpContains, e.Op)
	assert.Equal(t, CaseInsensitive, e.Options)

	e = requireExpression(t, b.Path("tags").Contains("vip"))
	assert.Equal(t, OpIn, e.Op)
	assert.False(t, e.Reversed)

	e = requireExpression(t, b.Path("dogs").Contains(ir.ObjectRef{Type: "Dog", ID: "d1"}))
	assert.Equal(t, OpIn, e.Op)

	e = requireExpression(t, b.Path("prices.@allKeys").Contains("eur"))
	assert.Equal(t, OpIn, e.Op)

	err := requireInvalid(t, b.Path("dogs").Contains(ir.ObjectRef{Type: "Person", ID: "p1"}))
	assert.True(t, IsTypeMismatchError(err))
}

func TestBuilder_InAndContainsAny(t *testing.T) {
	b := newBuilder("Person")

	e := requireExpression(t, b.Path("age").In([]int{1, 2, 3}))
	assert.True(t, e.Reversed)
	assert.Equal(t, []ir.Value{ir.List{ir.Int(1), ir.Int(2), ir.Int(3)}}, e.Literals())

	e = requireExpression(t, b.Path("tags").ContainsAny([]string{"a", "b"}))
	assert.True(t, e.Reversed)

	err := requireInvalid(t, b.Path("age").ContainsAny([]int{1}))
	assert.True(t, IsUnsupportedOperatorError(err))

	err = requireInvalid(t, b.Path("age").In([]any{1, "two"}))
	assert.True(t, IsTypeMismatchError(err))
}

func TestBuilder_Search(t *testing.T) {
	b := newBuilder("Person")

	e := requireExpression(t, b.Path("name").BeginsWith("A", CaseInsensitive, DiacriticInsensitive))
	assert.Equal(t, OpBeginsWith, e.Op)
	assert.Equal(t, CaseInsensitive|DiacriticInsensitive, e.Options)

	e = requireExpression(t, b.Path("photo").EndsWith([]byte{0xff}))
	assert.Equal(t, OpEndsWith, e.Op)

	e = requireExpression(t, b.Path("name").Like("a*?"))
	assert.Equal(t, OpLike, e.Op)

	e = requireExpression(t, b.Path("name").EqualFold("ADA", CaseInsensitive))
	assert.Equal(t, OpStringEqual, e.Op)

	err := requireInvalid(t, b.Path("name").BeginsWith(nil))
	assert.True(t, IsTypeMismatchError(err))
}

func TestBuilder_TypeMismatch(t *testing.T) {
	b := newBuilder("Person")

	tests := []struct {
		name string
		node Node
	}{
		{"string for int", b.Path("age").Equal("18")},
		{"null for required", b.Path("age").Equal(nil)},
		{"bool for string", b.Path("name").Equal(true)},
		{"list for scalar", b.Path("age").Equal([]int{1})},
		{"wrong link type", b.Path("partner").Equal(ir.ObjectRef{Type: "Dog", ID: "d1"})},
		{"ref for embedded", b.Path("address").Equal(ir.ObjectRef{Type: "Address", ID: "a"})},
		{
			"embedded with unknown field",
			b.Path("address").Equal(ir.Embedded{Type: "Address", Fields: []ir.Field{{Name: "street", Value: ir.String("x")}}}),
		},
		{
			"embedded with wrong field type",
			b.Path("address").Equal(ir.Embedded{Type: "Address", Fields: []ir.Field{{Name: "city", Value: ir.Int(1)}}}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := requireInvalid(t, tt.node)
			assert.True(t, IsTypeMismatchError(err), err.Error())
		})
	}
}

func TestBuilder_MixedAcceptsEverything(t *testing.T) {
	b := newBuilder("Person")

	for _, v := range []any{1, "x", true, nil, []any{1, []any{"nested"}}, map[string]any{"k": 1.5}} {
		requireExpression(t, b.Path("extra").Equal(v))
	}
}

func TestBuilder_PathErrors(t *testing.T) {
	b := newBuilder("Person")

	err := requireInvalid(t, b.Path("ssn").Equal(1))
	assert.True(t, keypath.IsPathResolutionError(err))

	err = requireInvalid(t, b.Path("age").Field("x").Equal(1))
	assert.True(t, keypath.IsPathResolutionError(err))

	err = requireInvalid(t, b.Path("age").Subquery(func(*Builder) Node { return b.True() }).Greater(1))
	assert.True(t, IsUnsupportedOperatorError(err))
}

func TestBuilder_FluentAccessors(t *testing.T) {
	b := newBuilder("Person")

	e := requireExpression(t, b.Path("dogs").Field("age").Min().Greater(3))
	assert.Equal(t, "dogs.@min.age", e.Path.String())

	e = requireExpression(t, b.Path("pets").Key("rex").Field("age").Equal(4))
	assert.Equal(t, "pets[%@].age", e.Path.String())

	e = requireExpression(t, b.At(keypath.Field("scores"), keypath.Count()).Equal(2))
	assert.Equal(t, "scores.@count", e.Path.String())
}

func TestBuilder_Column(t *testing.T) {
	b := newBuilder("Person")

	e := requireExpression(t, b.Path("age").Greater(b.Path("height")))
	col, ok := e.Operands[0].(Column)
	require.True(t, ok)
	assert.Equal(t, "height", col.Path.String())
}

func TestBuilder_Subquery(t *testing.T) {
	b := newBuilder("Person")

	n := b.Path("dogs").Subquery(func(d *Builder) Node {
		assert.Equal(t, "Dog", d.Root())
		return d.Path("age").Greater(3)
	}).GreaterEqual(2)

	sq, ok := n.(*Subquery)
	require.True(t, ok)
	assert.Equal(t, "dogs", sq.Collection.String())
	assert.Equal(t, OpGreaterEqual, sq.Op)
	assert.Equal(t, int64(2), sq.Count)
	requireExpression(t, sq.Where)
}

func TestAndOrFlatten(t *testing.T) {
	b := newBuilder("Person")
	x := b.Path("age").Equal(1)
	y := b.Path("age").Equal(2)
	z := b.Path("age").Equal(3)

	and, ok := b.And(b.And(x, y), z).(And)
	require.True(t, ok)
	assert.Len(t, and.Children, 3)

	or, ok := b.Or(x, b.Or(y, z)).(Or)
	require.True(t, ok)
	assert.Len(t, or.Children, 3)

	assert.Equal(t, x, b.And(x))
	assert.Equal(t, And{Children: []Node{}}, b.And())
}
