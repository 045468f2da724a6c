package predicate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"syreclabs.com/go/faker"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/query"
)

// leafGen builds one random valid expression.
type leafGen func(b *query.Builder) query.Node

func personLeaves() []leafGen {
	word := func() string { return faker.Lorem().Word() }
	num := func() int { return faker.RandomInt(0, 120) }

	return []leafGen{
		func(b *query.Builder) query.Node { return b.Path("age").GreaterEqual(num()) },
		func(b *query.Builder) query.Node { return b.Path("age").InRange(num(), num()+10) },
		func(b *query.Builder) query.Node { return b.Path("age").Between(num(), num()+10) },
		func(b *query.Builder) query.Node {
			return b.Path("name").BeginsWith(faker.Name().FirstName(), query.CaseInsensitive)
		},
		func(b *query.Builder) query.Node { return b.Path("nickname").IsNull() },
		func(b *query.Builder) query.Node { return b.Path("tags").Contains(word()) },
		func(b *query.Builder) query.Node { return b.Not(b.Path("tags").Contains(word())) },
		func(b *query.Builder) query.Node { return b.Path("tags").ContainsAny([]string{word(), word()}) },
		func(b *query.Builder) query.Node { return b.Path("scores").Between(num(), num()+5) },
		func(b *query.Builder) query.Node { return b.Path("dogs.@max.age").Less(num()) },
		func(b *query.Builder) query.Node {
			return b.Path("prices[%@]", word()).InRange(1, 1+faker.RandomInt(1, 9))
		},
		func(b *query.Builder) query.Node {
			return b.Path("pets[%@].name", word()).EqualFold(word(), query.DiacriticInsensitive)
		},
		func(b *query.Builder) query.Node {
			return b.Path("balance").Greater(ir.MustDecimal(faker.Number().Decimal(4, 2)))
		},
		func(b *query.Builder) query.Node {
			return b.Path("address").Equal(ir.Embedded{Type: "Address", Fields: []ir.Field{
				{Name: "city", Value: ir.String(faker.Address().City())},
			}})
		},
		func(b *query.Builder) query.Node {
			return b.Path("homes").Contains(ir.Embedded{Type: "Address", Fields: []ir.Field{
				{Name: "city", Value: ir.String(faker.Address().City())},
				{Name: "zip", Value: ir.String(faker.Address().ZipCode())},
			}})
		},
		func(b *query.Builder) query.Node {
			return b.Path("dogs").Subquery(func(d *query.Builder) query.Node {
				return d.Or(d.Path("age").Less(num()), d.Path("name").Like(word()+"*"))
			}).GreaterEqual(int64(faker.RandomInt(0, 3)))
		},
		func(b *query.Builder) query.Node { return b.Path("extra").Equal(word()) },
	}
}

func randomTree(b *query.Builder, leaves []leafGen, depth int) query.Node {
	if depth == 0 || faker.RandomInt(0, 2) == 0 {
		return leaves[faker.RandomInt(0, len(leaves)-1)](b)
	}
	children := make([]query.Node, faker.RandomInt(0, 3))
	for i := range children {
		children[i] = randomTree(b, leaves, depth-1)
	}
	if faker.RandomInt(0, 1) == 0 {
		return b.And(children...)
	}
	return b.Or(children...)
}

func TestCompile_PlaceholderArgumentParity(t *testing.T) {
	b := newBuilder("Person")
	leaves := personLeaves()
	c := quietCompiler()

	for i := 0; i < 500; i++ {
		tree := randomTree(b, leaves, 4)
		p, err := c.Compile(tree)
		require.NoError(t, err, "iteration %d", i)

		require.Equal(t, strings.Count(p.Format, Placeholder), len(p.Args), p.Format)
		for _, arg := range p.Args {
			require.NotNil(t, arg, p.Format)
			_, isEnum := arg.(ir.Enum)
			assert.False(t, isEnum, "enum arguments are bound by raw value")
		}
	}
}

func TestCompile_Deterministic(t *testing.T) {
	b := newBuilder("Person")
	leaves := personLeaves()

	for i := 0; i < 50; i++ {
		tree := randomTree(b, leaves, 3)
		first := MustCompile(tree)
		second := MustCompile(tree)
		assert.Equal(t, first, second)
	}
}
