package predicate

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tsq/internal/query"
)

// TestCompile_Golden pins the rendered form of representative predicates.
// Regenerate with: go test ./internal/predicate -run Golden -update
func TestCompile_Golden(t *testing.T) {
	b := newBuilder("Person")

	tests := []struct {
		name string
		node query.Node
	}{
		{
			name: "adults",
			node: b.And(b.Path("age").GreaterEqual(18), b.Path("age").Less(65)),
		},
		{
			name: "nested_subquery",
			node: b.Path("dogs").Subquery(func(d *query.Builder) query.Node {
				return d.Path("toys").Subquery(func(toy *query.Builder) query.Node {
					return toy.Path("price").Greater(5)
				}).Greater(0)
			}).GreaterEqual(1),
		},
		{
			name: "embedded_membership",
			node: b.Path("homes").Contains(oslo()),
		},
		{
			name: "keyed_range",
			node: b.Path("prices[%@]", "eur").InRange(1, 2),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := quietCompiler().Compile(tt.node)
			require.NoError(t, err)

			g := goldie.New(t,
				goldie.WithFixtureDir("testdata/golden"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, tt.name, []byte(p.Describe()))
		})
	}
}
