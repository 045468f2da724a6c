package predicate

import (
	"fmt"

	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/query"
	"github.com/roach88/tsq/internal/schema"
)

// Precedence orders emitted fragments for parenthesization.
type Precedence int

const (
	PrecOr Precedence = iota + 1
	PrecAnd
	PrecNot
	PrecTest
)

// Lowering is the textual form of one operator applied to one leaf.
type Lowering struct {
	Template string
	Arity    int
	Prec     Precedence
}

// Lower returns the template for op on a path with the given leaf. The
// path is opaque here: aggregate markers are already part of it.
//
// Membership lowers to "%@ IN %b" (the value before the path). The reversed
// form, "path IN list", is produced by the compiler for Reversed
// expressions.
func Lower(op query.Operator, leaf keypath.Leaf, opts query.StringOptions) (Lowering, error) {
	unsupported := func(code query.UnsupportedCode, msg string) (Lowering, error) {
		return Lowering{}, &query.UnsupportedOperatorError{Code: code, Op: op, Type: leaf.Type, Message: msg}
	}

	if !op.Valid() {
		return unsupported(query.ErrCodeUnknownOperator, "unknown operator")
	}
	if opts != 0 && !op.AcceptsOptions() {
		return unsupported(query.ErrCodeOptions, fmt.Sprintf("options %s not allowed on %s", opts.Suffix(), op))
	}
	if (op.IsOrdering() || op.IsRange()) && !leaf.Ordered() && leaf.Type != schema.TypeMixed {
		return unsupported(query.ErrCodeUnordered, fmt.Sprintf("%s requires an ordered type", op))
	}
	if op.AcceptsOptions() && !leaf.Type.Searchable() && leaf.Type != schema.TypeMixed {
		return unsupported(query.ErrCodeNotSearchable, fmt.Sprintf("%s requires a string or binary type", op))
	}
	if op == query.OpLike && leaf.Type == schema.TypeBinary {
		return unsupported(query.ErrCodeNotSearchable, "LIKE requires a string type")
	}

	sfx := opts.Suffix()
	switch {
	case op.IsComparison():
		return Lowering{Template: "%p " + op.Token() + " %@", Arity: 1, Prec: PrecTest}, nil

	case op == query.OpStringEqual || op == query.OpStringNotEqual:
		return Lowering{Template: "%p " + op.Token() + sfx + " %@", Arity: 1, Prec: PrecTest}, nil

	case op == query.OpRangeHalfOpen:
		if leaf.Multi {
			return Lowering{Template: "(%m >= %@) && (%M < %@)", Arity: 2, Prec: PrecAnd}, nil
		}
		return Lowering{Template: "(%p >= %@) && (%p < %@)", Arity: 2, Prec: PrecAnd}, nil

	case op == query.OpRangeClosed:
		if leaf.Multi {
			return Lowering{Template: "(%m >= %@) && (%M <= %@)", Arity: 2, Prec: PrecAnd}, nil
		}
		return Lowering{Template: "%p BETWEEN {%@, %@}", Arity: 2, Prec: PrecTest}, nil

	case op == query.OpIn:
		return Lowering{Template: "%@ IN %b", Arity: 1, Prec: PrecTest}, nil

	case op.IsSearch():
		return Lowering{Template: "%p " + op.Token() + sfx + " %@", Arity: 1, Prec: PrecTest}, nil
	}
	return unsupported(query.ErrCodeUnknownOperator, "operator has no lowering")
}

// reversedIn is "path IN list"; existential over multi-valued paths.
var reversedIn = Lowering{Template: "%p IN %@", Arity: 1, Prec: PrecTest}

// flip mirrors a comparison so its operands can be swapped.
func flip(op query.Operator) query.Operator {
	switch op {
	case query.OpLess:
		return query.OpGreater
	case query.OpLessEqual:
		return query.OpGreaterEqual
	case query.OpGreater:
		return query.OpLess
	case query.OpGreaterEqual:
		return query.OpLessEqual
	}
	return op
}
