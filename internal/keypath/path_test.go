package keypath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_WithAggregate(t *testing.T) {
	r := newResolver()

	p, err := r.Resolve("Person", Field("dogs"), Field("age"))
	require.NoError(t, err)
	require.True(t, p.Leaf.Multi)

	minPath := p.WithAggregate(AggMin)
	assert.Equal(t, "dogs.@min.age", minPath.String())
	assert.False(t, minPath.Leaf.Multi)
	assert.True(t, minPath.Leaf.Aggregated)

	// The original is untouched.
	assert.Equal(t, "dogs.age", p.String())

	scalar, err := r.Resolve("Person", Field("age"))
	require.NoError(t, err)
	assert.Equal(t, "age", scalar.WithAggregate(AggMax).String())
}

func TestPath_CollectionPrefix(t *testing.T) {
	r := newResolver()

	p, err := r.Resolve("Person", Field("partner"), Field("dogs"), Field("name"))
	require.NoError(t, err)

	prefix, rest, ok := p.CollectionPrefix()
	require.True(t, ok)
	assert.Equal(t, "partner.dogs", prefix.String())
	require.Len(t, rest, 1)
	assert.Equal(t, "name", rest[0].Name)

	keyed, err := r.Resolve("Person", Field("pets"), Key("rex"), Field("name"))
	require.NoError(t, err)
	_, _, ok = keyed.CollectionPrefix()
	assert.False(t, ok, "a subscripted map is not to-many")
	assert.Equal(t, -1, keyed.ToManyIndex())
}

func TestPath_Variable(t *testing.T) {
	p, err := newResolver().Resolve("Dog", Field("age"))
	require.NoError(t, err)

	assert.Equal(t, "$col3.age", p.WithVariable("$col3").String())
	assert.Equal(t, "$col3", Path{Root: "Dog", Var: "$col3"}.String())
}

func TestPath_LastAggregate(t *testing.T) {
	p, err := newResolver().Resolve("Person", Field("dogs"), Field("age"), Max())
	require.NoError(t, err)

	agg, ok := p.LastAggregate()
	require.True(t, ok)
	assert.Equal(t, AggMax, agg)

	q, err := newResolver().Resolve("Person", Field("age"))
	require.NoError(t, err)
	_, ok = q.LastAggregate()
	assert.False(t, ok)
	assert.False(t, q.IsZero())
	assert.True(t, Path{}.IsZero())
}

func TestParseAggregate(t *testing.T) {
	for _, a := range []Aggregate{AggMin, AggMax, AggSum, AggAvg, AggCount, AggKeys, AggValues} {
		got, ok := ParseAggregate(string(a))
		assert.True(t, ok)
		assert.Equal(t, a, got)
	}
	_, ok := ParseAggregate("@median")
	assert.False(t, ok)
}
