package predicate

import (
	"slices"
	"strings"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/query"
)

// embedded compiles expressions whose operand is an embedded object
// snapshot. Embedded objects have no identity, so equality expands into
// per-field tests. ok is false when e has no embedded operand.
func (st *compilation) embedded(e *query.Expression, scope string, negated bool) (fragment, bool, error) {
	if len(e.Operands) != 1 {
		return fragment{}, false, nil
	}
	lit, isLit := e.Operands[0].(query.Literal)
	if !isLit {
		return fragment{}, false, nil
	}

	switch v := lit.Value.(type) {
	case ir.Embedded:
		switch {
		case e.Op == query.OpEqual:
			return st.embeddedTest(scope, e.Path.Segments, v, false, "> 0"), true, nil
		case e.Op == query.OpNotEqual:
			return st.embeddedTest(scope, e.Path.Segments, v, true, "> 0"), true, nil
		case e.Op == query.OpIn && !e.Reversed:
			count := "> 0"
			if negated {
				count = "== 0"
			}
			f := st.embeddedTest(scope, e.Path.Segments, v, false, count)
			if negated && e.Path.ToManyIndex() < 0 {
				f = fragment{text: "NOT " + wrap(f, PrecNot), args: f.args, prec: PrecNot}
			}
			return f, true, nil
		}

	case ir.List:
		if e.Op != query.OpIn || !e.Reversed || !slices.ContainsFunc(v, isEmbedded) {
			return fragment{}, false, nil
		}
		f, err := st.embeddedAny(e, scope, v)
		if err != nil {
			return fragment{}, true, err
		}
		if negated {
			f = fragment{text: "NOT " + wrap(f, PrecNot), args: f.args, prec: PrecNot}
		}
		return f, true, nil
	}
	return fragment{}, false, nil
}

func isEmbedded(v ir.Value) bool {
	_, ok := v.(ir.Embedded)
	return ok
}

// embeddedAny lowers "path IN {a, b, ...}" over embedded snapshots into an
// OR of equality tests.
func (st *compilation) embeddedAny(e *query.Expression, scope string, items ir.List) (fragment, error) {
	if len(items) == 0 {
		return fragment{text: falsePredicate, prec: PrecTest}, nil
	}
	if len(items) == 1 {
		return st.embeddedItem(e, scope, items[0])
	}
	parts := make([]string, 0, len(items))
	var args []ir.Value
	for _, item := range items {
		f, err := st.embeddedItem(e, scope, item)
		if err != nil {
			return fragment{}, err
		}
		parts = append(parts, wrap(f, PrecOr))
		args = append(args, f.args...)
	}
	return fragment{text: strings.Join(parts, " || "), args: args, prec: PrecOr}, nil
}

func (st *compilation) embeddedItem(e *query.Expression, scope string, item ir.Value) (fragment, error) {
	if emb, ok := item.(ir.Embedded); ok {
		return st.embeddedTest(scope, e.Path.Segments, emb, false, "> 0"), nil
	}
	l, err := Lower(query.OpEqual, e.Path.Leaf, 0)
	if err != nil {
		return fragment{}, err
	}
	return expand(l, e.Path, scope, []query.Operand{query.Literal{Value: item}})
}

// embeddedTest compares the value at segs with v field by field: an AND of
// == tests, or an OR of != tests when ne is set. A to-many hop in segs
// becomes SUBQUERY(coll, $colN, ...).@count <count>.
func (st *compilation) embeddedTest(scope string, segs []keypath.Segment, v ir.Embedded, ne bool, count string) fragment {
	if i := (keypath.Path{Segments: segs}).ToManyIndex(); i >= 0 {
		coll := renderPath(keypath.Path{Segments: segs[:i+1]}, scope, false)
		variable := st.newVar()
		inner := st.embeddedTest(variable, segs[i+1:], v, ne, "> 0")
		return fragment{
			text: "SUBQUERY(" + coll.text + ", " + variable + ", " + inner.text + ").@count " + count,
			args: concat(coll.args, inner.args),
			prec: PrecTest,
		}
	}

	op, sep, prec, empty := " == ", " && ", PrecAnd, truePredicate
	if ne {
		op, sep, prec, empty = " != ", " || ", PrecOr, falsePredicate
	}
	if len(v.Fields) == 0 {
		return fragment{text: empty, prec: PrecTest}
	}

	frags := make([]fragment, 0, len(v.Fields))
	for _, field := range v.Fields {
		fieldSegs := append(slices.Clone(segs), keypath.Segment{Kind: keypath.SegmentField, Name: field.Name})

		if nested, ok := field.Value.(ir.Embedded); ok {
			frags = append(frags, st.embeddedTest(scope, fieldSegs, nested, ne, "> 0"))
			continue
		}
		p := renderPath(keypath.Path{Segments: fieldSegs}, scope, false)
		frags = append(frags, fragment{
			text: p.text + op + Placeholder,
			args: append(p.args, argValue(field.Value)),
			prec: PrecTest,
		})
	}
	if len(frags) == 1 {
		return frags[0]
	}

	parts := make([]string, 0, len(frags))
	var args []ir.Value
	for _, f := range frags {
		parts = append(parts, wrap(f, prec))
		args = append(args, f.args...)
	}
	return fragment{text: strings.Join(parts, sep), args: args, prec: prec}
}
