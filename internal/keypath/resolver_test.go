package keypath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/schema"
	"github.com/roach88/tsq/internal/testutil"
)

func newResolver() *Resolver {
	return NewResolver(testutil.PeopleSchema())
}

func TestResolve_Paths(t *testing.T) {
	r := newResolver()

	tests := []struct {
		name      string
		root      string
		accessors []Accessor
		want      string
		leaf      Leaf
	}{
		{
			name:      "scalar",
			root:      "Person",
			accessors: []Accessor{Field("age")},
			want:      "age",
			leaf:      Leaf{Type: schema.TypeInt},
		},
		{
			name:      "through link and embedded",
			root:      "Dog",
			accessors: []Accessor{Field("owner"), Field("address"), Field("city")},
			want:      "owner.address.city",
			leaf:      Leaf{Type: schema.TypeString},
		},
		{
			name:      "three hops",
			root:      "Person",
			accessors: []Accessor{Field("partner"), Field("address"), Field("country"), Field("name")},
			want:      "partner.address.country.name",
			leaf:      Leaf{Type: schema.TypeString},
		},
		{
			name:      "link leaf",
			root:      "Dog",
			accessors: []Accessor{Field("owner")},
			want:      "owner",
			leaf:      Leaf{Type: schema.TypeObject, ObjectType: "Person", Optional: true},
		},
		{
			name:      "collection leaf",
			root:      "Person",
			accessors: []Accessor{Field("scores")},
			want:      "scores",
			leaf:      Leaf{Type: schema.TypeInt, Collection: schema.CollectionList, Multi: true},
		},
		{
			name:      "property of elements",
			root:      "Person",
			accessors: []Accessor{Field("dogs"), Field("name")},
			want:      "dogs.name",
			leaf:      Leaf{Type: schema.TypeString, Multi: true},
		},
		{
			name:      "min of element property",
			root:      "Person",
			accessors: []Accessor{Field("dogs"), Field("age"), Min()},
			want:      "dogs.@min.age",
			leaf:      Leaf{Type: schema.TypeInt, Optional: true, Aggregated: true},
		},
		{
			name:      "max of scalar list",
			root:      "Person",
			accessors: []Accessor{Field("scores"), Max()},
			want:      "scores.@max",
			leaf:      Leaf{Type: schema.TypeInt, Optional: true, Aggregated: true},
		},
		{
			name:      "sum keeps type",
			root:      "Dog",
			accessors: []Accessor{Field("toys"), Field("price"), Sum()},
			want:      "toys.@sum.price",
			leaf:      Leaf{Type: schema.TypeDecimal, Aggregated: true},
		},
		{
			name:      "avg of ints is double",
			root:      "Person",
			accessors: []Accessor{Field("scores"), Avg()},
			want:      "scores.@avg",
			leaf:      Leaf{Type: schema.TypeDouble, Optional: true, Aggregated: true},
		},
		{
			name:      "count",
			root:      "Person",
			accessors: []Accessor{Field("dogs"), Count()},
			want:      "dogs.@count",
			leaf:      Leaf{Type: schema.TypeInt, Aggregated: true},
		},
		{
			name:      "count under to-many stays multi",
			root:      "Person",
			accessors: []Accessor{Field("dogs"), Field("toys"), Count()},
			want:      "dogs.toys.@count",
			leaf:      Leaf{Type: schema.TypeInt, Multi: true, Aggregated: true},
		},
		{
			name:      "all keys",
			root:      "Person",
			accessors: []Accessor{Field("prices"), Keys()},
			want:      "prices.@allKeys",
			leaf:      Leaf{Type: schema.TypeString, Aggregated: true},
		},
		{
			name:      "all values",
			root:      "Person",
			accessors: []Accessor{Field("prices"), Values()},
			want:      "prices.@allValues",
			leaf:      Leaf{Type: schema.TypeDouble, Aggregated: true},
		},
		{
			name:      "map key then property",
			root:      "Person",
			accessors: []Accessor{Field("pets"), Key("rex"), Field("age")},
			want:      "pets[%@].age",
			leaf:      Leaf{Type: schema.TypeInt},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Resolve(tt.root, tt.accessors...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
			assert.Equal(t, tt.leaf, p.Leaf)
			assert.Equal(t, tt.root, p.Root)
		})
	}
}

func TestResolve_MapKeyBound(t *testing.T) {
	p, err := newResolver().Resolve("Person", Field("prices"), Key("eur"))
	require.NoError(t, err)

	assert.Equal(t, "prices[%@]", p.String())
	assert.Equal(t, []ir.Value{ir.String("eur")}, p.Keys())
	assert.False(t, p.Leaf.Multi)
	assert.True(t, p.Leaf.Optional)
}

func TestResolve_Idempotent(t *testing.T) {
	r := newResolver()
	chain := []Accessor{Field("partner"), Field("address"), Field("country"), Field("name")}

	a, err := r.Resolve("Person", chain...)
	require.NoError(t, err)
	b, err := r.Resolve("Person", chain...)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.String(), b.String())

	c, err := r.Resolve("Person", Field("partner"), Field("name"))
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestResolve_Errors(t *testing.T) {
	r := newResolver()

	tests := []struct {
		name      string
		root      string
		accessors []Accessor
		code      PathErrorCode
	}{
		{"unknown root", "Cat", []Accessor{Field("age")}, ErrCodeUnknownType},
		{"unknown property", "Person", []Accessor{Field("ssn")}, ErrCodeUnknownProperty},
		{"unknown nested property", "Dog", []Accessor{Field("owner"), Field("ssn")}, ErrCodeUnknownProperty},
		{"field on scalar", "Person", []Accessor{Field("age"), Field("x")}, ErrCodeNotObject},
		{"aggregate on scalar", "Person", []Accessor{Field("age"), Min()}, ErrCodeNotCollection},
		{"count on scalar", "Person", []Accessor{Field("age"), Count()}, ErrCodeNotCollection},
		{"keys on list", "Person", []Accessor{Field("scores"), Keys()}, ErrCodeNotMap},
		{"key on list", "Person", []Accessor{Field("scores"), Key("a")}, ErrCodeNotMap},
		{"non-string key", "Person", []Accessor{Field("prices"), Key(1)}, ErrCodeNotMap},
		{"min of strings", "Person", []Accessor{Field("tags"), Min()}, ErrCodeAggregateType},
		{"sum of strings", "Person", []Accessor{Field("dogs"), Field("name"), Sum()}, ErrCodeAggregateType},
		{"nested to-many", "Person", []Accessor{Field("dogs"), Field("toys"), Field("price"), Min()}, ErrCodeAggregateType},
		{"after count", "Person", []Accessor{Field("dogs"), Count(), Field("x")}, ErrCodeTerminated},
		{"after min", "Person", []Accessor{Field("scores"), Min(), Max()}, ErrCodeTerminated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.root, tt.accessors...)
			require.Error(t, err)
			assert.True(t, IsPathResolutionError(err))
			assert.Equal(t, tt.code, ErrorCode(err))
		})
	}
}

func TestResolve_IntEnumIsOrdered(t *testing.T) {
	s := testutil.PeopleSchema()
	person, ok := s.Object("Person")
	require.True(t, ok)
	person.Properties = append(person.Properties,
		schema.Property{Name: "levels", Type: schema.TypeEnum, Enum: "Priority", Collection: schema.CollectionList},
		schema.Property{Name: "moods", Type: schema.TypeEnum, Enum: "Mood", Collection: schema.CollectionList},
	)
	r := NewResolver(s)

	level, err := r.Resolve("Person", Field("level"))
	require.NoError(t, err)
	assert.Equal(t, Leaf{Type: schema.TypeEnum, Enum: "Priority", EnumRaw: schema.TypeInt}, level.Leaf)
	assert.True(t, level.Leaf.Ordered())
	assert.True(t, level.Leaf.Numeric())

	mood, err := r.Resolve("Person", Field("mood"))
	require.NoError(t, err)
	assert.False(t, mood.Leaf.Ordered())
	assert.False(t, mood.Leaf.Numeric())

	tests := []struct {
		name string
		agg  Accessor
		leaf Leaf
	}{
		{"max", Max(), Leaf{Type: schema.TypeInt, Optional: true, Aggregated: true}},
		{"sum", Sum(), Leaf{Type: schema.TypeInt, Aggregated: true}},
		{"avg", Avg(), Leaf{Type: schema.TypeDouble, Optional: true, Aggregated: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Resolve("Person", Field("levels"), tt.agg)
			require.NoError(t, err)
			assert.Equal(t, tt.leaf, p.Leaf)
		})
	}

	_, err = r.Resolve("Person", Field("moods"), Min())
	require.Error(t, err)
	assert.Equal(t, ErrCodeAggregateType, ErrorCode(err))
}

func TestResolve_ErrorCarriesChain(t *testing.T) {
	_, err := newResolver().Resolve("Dog", Field("owner"), Field("ssn"))
	require.Error(t, err)

	var pe *PathResolutionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Dog", pe.Root)
	assert.Equal(t, "owner.ssn", pe.Path)
	assert.Contains(t, err.Error(), `unknown property "ssn" on Person`)
}

func TestExtend(t *testing.T) {
	r := newResolver()

	base, err := r.Resolve("Person", Field("address"))
	require.NoError(t, err)

	city, err := r.Extend(base.WithVariable("$col0"), Field("city"))
	require.NoError(t, err)
	assert.Equal(t, "$col0.address.city", city.String())

	scores, err := r.Resolve("Person", Field("scores"))
	require.NoError(t, err)
	_, err = r.Extend(scores.WithAggregate(AggMin), Field("city"))
	assert.Equal(t, ErrCodeTerminated, ErrorCode(err))
}

func TestParse(t *testing.T) {
	r := newResolver()

	tests := []struct {
		text string
		keys []any
		want string
	}{
		{"age", nil, "age"},
		{"partner.address.city", nil, "partner.address.city"},
		{"dogs.age.@min", nil, "dogs.@min.age"},
		{"dogs.@min.age", nil, "dogs.@min.age"},
		{"dogs.toys.@count", nil, "dogs.toys.@count"},
		{"prices.@allKeys", nil, "prices.@allKeys"},
		{"prices[%@]", []any{"eur"}, "prices[%@]"},
		{`pets["rex"].name`, nil, "pets[%@].name"},
		{"pets[rex].name", nil, "pets[%@].name"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p, err := r.Parse("Person", tt.text, tt.keys...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
		})
	}
}

func TestParse_MatchesResolve(t *testing.T) {
	r := newResolver()

	parsed, err := r.Parse("Person", `pets["rex"].age`)
	require.NoError(t, err)
	resolved, err := r.Resolve("Person", Field("pets"), Key("rex"), Field("age"))
	require.NoError(t, err)

	assert.True(t, parsed.Equal(resolved))
}

func TestParse_SyntaxErrors(t *testing.T) {
	r := newResolver()

	for _, text := range []string{"", "a..b", "age.", "prices[eur", "prices[%@]", "@median", "age]"} {
		t.Run(text, func(t *testing.T) {
			_, err := r.Parse("Person", text)
			require.Error(t, err)
			assert.Equal(t, ErrCodeSyntax, ErrorCode(err))
		})
	}
}

func TestParse_TooManyKeys(t *testing.T) {
	_, err := newResolver().Parse("Person", "age", "extra")
	assert.Equal(t, ErrCodeSyntax, ErrorCode(err))
}
