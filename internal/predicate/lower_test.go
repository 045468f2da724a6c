package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/query"
	"github.com/roach88/tsq/internal/schema"
)

func TestLower(t *testing.T) {
	scalar := keypath.Leaf{Type: schema.TypeInt}
	multi := keypath.Leaf{Type: schema.TypeInt, Multi: true}
	text := keypath.Leaf{Type: schema.TypeString}

	tests := []struct {
		name     string
		op       query.Operator
		leaf     keypath.Leaf
		opts     query.StringOptions
		template string
		arity    int
		prec     Precedence
	}{
		{"equal", query.OpEqual, scalar, 0, "%p == %@", 1, PrecTest},
		{"not equal", query.OpNotEqual, scalar, 0, "%p != %@", 1, PrecTest},
		{"less", query.OpLess, scalar, 0, "%p < %@", 1, PrecTest},
		{"less equal", query.OpLessEqual, scalar, 0, "%p <= %@", 1, PrecTest},
		{"greater", query.OpGreater, scalar, 0, "%p > %@", 1, PrecTest},
		{"greater equal", query.OpGreaterEqual, multi, 0, "%p >= %@", 1, PrecTest},
		{"half-open", query.OpRangeHalfOpen, scalar, 0, "(%p >= %@) && (%p < %@)", 2, PrecAnd},
		{"half-open multi", query.OpRangeHalfOpen, multi, 0, "(%m >= %@) && (%M < %@)", 2, PrecAnd},
		{"closed", query.OpRangeClosed, scalar, 0, "%p BETWEEN {%@, %@}", 2, PrecTest},
		{"closed multi", query.OpRangeClosed, multi, 0, "(%m >= %@) && (%M <= %@)", 2, PrecAnd},
		{"membership", query.OpIn, multi, 0, "%@ IN %b", 1, PrecTest},
		{"begins with", query.OpBeginsWith, text, query.CaseInsensitive, "%p BEGINSWITH[c] %@", 1, PrecTest},
		{"ends with", query.OpEndsWith, text, query.DiacriticInsensitive, "%p ENDSWITH[d] %@", 1, PrecTest},
		{"contains", query.OpContains, text, query.CaseInsensitive | query.DiacriticInsensitive, "%p CONTAINS[cd] %@", 1, PrecTest},
		{"like", query.OpLike, text, 0, "%p LIKE %@", 1, PrecTest},
		{"string equal", query.OpStringEqual, text, query.CaseInsensitive, "%p ==[c] %@", 1, PrecTest},
		{"string not equal", query.OpStringNotEqual, text, 0, "%p != %@", 1, PrecTest},
		{"mixed ordering", query.OpLess, keypath.Leaf{Type: schema.TypeMixed}, 0, "%p < %@", 1, PrecTest},
		{"int enum ordering", query.OpGreater, keypath.Leaf{Type: schema.TypeEnum, Enum: "Priority", EnumRaw: schema.TypeInt}, 0, "%p > %@", 1, PrecTest},
		{"binary search", query.OpContains, keypath.Leaf{Type: schema.TypeBinary}, 0, "%p CONTAINS %@", 1, PrecTest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Lower(tt.op, tt.leaf, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.template, l.Template)
			assert.Equal(t, tt.arity, l.Arity)
			assert.Equal(t, tt.prec, l.Prec)
			assert.Equal(t, tt.op.Arity(), l.Arity)
		})
	}
}

func TestLower_TokenIndependentOfLeaf(t *testing.T) {
	leaves := []keypath.Leaf{
		{Type: schema.TypeInt},
		{Type: schema.TypeDate, Optional: true},
		{Type: schema.TypeDecimal, Aggregated: true},
		{Type: schema.TypeDouble, Multi: true},
	}
	for _, leaf := range leaves {
		l, err := Lower(query.OpEqual, leaf, 0)
		require.NoError(t, err)
		assert.Contains(t, l.Template, " == ")
		assert.NotContains(t, l.Template, " = ")
	}
}

func TestLower_Errors(t *testing.T) {
	tests := []struct {
		name string
		op   query.Operator
		leaf keypath.Leaf
		opts query.StringOptions
		code query.UnsupportedCode
	}{
		{"unknown", query.Operator(99), keypath.Leaf{Type: schema.TypeInt}, 0, query.ErrCodeUnknownOperator},
		{"options on comparison", query.OpEqual, keypath.Leaf{Type: schema.TypeString}, query.CaseInsensitive, query.ErrCodeOptions},
		{"range on string", query.OpRangeClosed, keypath.Leaf{Type: schema.TypeString}, 0, query.ErrCodeUnordered},
		{"ordering on bool", query.OpLess, keypath.Leaf{Type: schema.TypeBool}, 0, query.ErrCodeUnordered},
		{"search on int", query.OpLike, keypath.Leaf{Type: schema.TypeInt}, 0, query.ErrCodeNotSearchable},
		{"like on binary", query.OpLike, keypath.Leaf{Type: schema.TypeBinary}, 0, query.ErrCodeNotSearchable},
		{"ordering on string enum", query.OpGreater, keypath.Leaf{Type: schema.TypeEnum, Enum: "Mood", EnumRaw: schema.TypeString}, 0, query.ErrCodeUnordered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lower(tt.op, tt.leaf, tt.opts)
			require.Error(t, err)
			var ue *query.UnsupportedOperatorError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.code, ue.Code)
		})
	}
}
