package query

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/schema"
)

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid  bool
	Errors []error
}

// Err aggregates the validation errors, or returns nil when valid.
func (r ValidationResult) Err() error {
	var result *multierror.Error
	for _, err := range r.Errors {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Validate checks a predicate tree against the rules the query engine
// imposes. Construction errors carried by Invalid nodes are reported
// first, then operator violations in depth-first order. Validate does
// not fail fast.
func Validate(n Node) ValidationResult {
	v := &validator{}
	v.collectInvalid(n)
	v.walk(n)
	return ValidationResult{Valid: len(v.errs) == 0, Errors: v.errs}
}

type validator struct {
	errs []error
}

func (v *validator) add(err error) {
	v.errs = append(v.errs, err)
}

func (v *validator) collectInvalid(n Node) {
	switch n := n.(type) {
	case Invalid:
		if n.Err == nil {
			v.add(fmt.Errorf("invalid node"))
			return
		}
		v.add(n.Err)
	case Not:
		v.collectInvalid(n.Child)
	case And:
		for _, c := range n.Children {
			v.collectInvalid(c)
		}
	case Or:
		for _, c := range n.Children {
			v.collectInvalid(c)
		}
	case *Subquery:
		if n != nil {
			v.collectInvalid(n.Where)
		}
	}
}

func (v *validator) walk(n Node) {
	switch n := n.(type) {
	case nil:
		v.add(&UnsupportedOperatorError{Code: ErrCodeArity, Message: "missing predicate node"})
	case Invalid:
		// reported by collectInvalid
	case *Expression:
		if n == nil {
			v.add(&UnsupportedOperatorError{Code: ErrCodeArity, Message: "missing predicate node"})
			return
		}
		v.expression(n)
	case Not:
		e, ok := n.Child.(*Expression)
		if !ok {
			if _, invalid := n.Child.(Invalid); !invalid {
				v.add(&UnsupportedOperatorError{
					Code:    ErrCodeNegation,
					Message: fmt.Sprintf("NOT cannot be applied to %s", describeNode(n.Child)),
				})
			}
			v.walk(n.Child)
			return
		}
		if !e.Op.Negatable() {
			v.add(&UnsupportedOperatorError{
				Code:    ErrCodeNegation,
				Op:      e.Op,
				Path:    e.Path.String(),
				Type:    e.Path.Leaf.Type,
				Message: "NOT is only supported before membership and contains",
			})
		}
		v.expression(e)
	case And:
		for _, c := range n.Children {
			v.walk(c)
		}
	case Or:
		for _, c := range n.Children {
			v.walk(c)
		}
	case *Subquery:
		if n == nil {
			v.add(&UnsupportedOperatorError{Code: ErrCodeSubquery, Message: "missing subquery"})
			return
		}
		v.subquery(n)
	}
}

func describeNode(n Node) string {
	switch n := n.(type) {
	case *Expression:
		return n.Op.String()
	case Not:
		return "NOT"
	case And:
		return "AND"
	case Or:
		return "OR"
	case *Subquery:
		return "SUBQUERY"
	}
	return "node"
}

func (v *validator) subquery(s *Subquery) {
	unsupported := func(msg string) {
		v.add(&UnsupportedOperatorError{
			Code:    ErrCodeSubquery,
			Op:      s.Op,
			Path:    s.Collection.String(),
			Type:    s.Collection.Leaf.Type,
			Message: msg,
		})
	}
	leaf := s.Collection.Leaf
	if leaf.Type != schema.TypeObject || leaf.Collection == schema.CollectionNone || leaf.Aggregated {
		unsupported("subquery requires a collection of objects")
	}
	if !s.Op.IsComparison() {
		unsupported(fmt.Sprintf("subquery count cannot use %s", s.Op))
	}
	if s.Count < 0 {
		unsupported("subquery count must not be negative")
	}
	if s.Where == nil {
		unsupported("subquery has no predicate")
		return
	}
	v.walk(s.Where)
}

func (v *validator) expression(e *Expression) {
	leaf := e.Path.Leaf
	unsupported := func(code UnsupportedCode, format string, args ...any) {
		v.add(&UnsupportedOperatorError{
			Code:    code,
			Op:      e.Op,
			Path:    e.Path.String(),
			Type:    leaf.Type,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if !e.Op.Valid() {
		unsupported(ErrCodeUnknownOperator, "unknown operator")
		return
	}
	if len(e.Operands) != e.Op.Arity() {
		unsupported(ErrCodeArity, "%s takes %d operand(s), got %d", e.Op, e.Op.Arity(), len(e.Operands))
		return
	}
	if e.Options != 0 && !e.Op.AcceptsOptions() {
		unsupported(ErrCodeOptions, "options %s are only valid on string search and equality operators", e.Options.Suffix())
	}

	var literals []ir.Value
	for _, operand := range e.Operands {
		switch o := operand.(type) {
		case Literal:
			literals = append(literals, o.Value)
		case Column:
			v.column(e, o.Path)
		}
	}

	switch {
	case e.Op.IsOrdering() || e.Op.IsRange():
		if !orderedLeaf(leaf, literals, e.Operands) {
			unsupported(ErrCodeUnordered, "%s requires an ordered type", e.Op)
		}

	case e.Op == OpLike:
		if !likeLeaf(leaf, literals) {
			unsupported(ErrCodeNotSearchable, "%s requires a string type", e.Op)
		}

	case e.Op.IsSearch() || e.Op == OpStringEqual || e.Op == OpStringNotEqual:
		if !searchableLeaf(leaf, literals) {
			unsupported(ErrCodeNotSearchable, "%s requires a string or binary type", e.Op)
		}

	case e.Op == OpIn && e.Reversed:
		if len(literals) != 1 || literals[0] == nil || literals[0].Kind() != ir.KindList {
			unsupported(ErrCodeMembership, "IN requires a list of values")
		}

	case e.Op == OpIn:
		if !membershipPath(e.Path) {
			unsupported(ErrCodeMembership, "membership requires a collection path")
		}
	}
}

func (v *validator) column(e *Expression, other keypath.Path) {
	unsupported := func(format string, args ...any) {
		v.add(&UnsupportedOperatorError{
			Code:    ErrCodeColumn,
			Op:      e.Op,
			Path:    e.Path.String(),
			Type:    e.Path.Leaf.Type,
			Message: fmt.Sprintf(format, args...),
		})
	}
	if !e.Op.IsComparison() && e.Op != OpStringEqual && e.Op != OpStringNotEqual {
		unsupported("%s cannot compare two columns", e.Op)
		return
	}
	if e.Path.Leaf.Multi && other.Leaf.Multi {
		unsupported("cannot compare two multi-valued paths (%s, %s)", e.Path, other)
		return
	}
	if !columnsCompatible(e.Path.Leaf, other.Leaf) {
		unsupported("cannot compare %s with %s", describeLeaf(e.Path.Leaf), describeLeaf(other.Leaf))
	}
}

func orderedLeaf(leaf keypath.Leaf, literals []ir.Value, operands []Operand) bool {
	if leaf.Ordered() {
		for _, operand := range operands {
			if c, ok := operand.(Column); ok && !c.Path.Leaf.Ordered() && c.Path.Leaf.Type != schema.TypeMixed {
				return false
			}
		}
		return true
	}
	if leaf.Type != schema.TypeMixed {
		return false
	}
	for _, lit := range literals {
		if !ir.IsOrderable(lit) {
			return false
		}
	}
	return true
}

func searchableLeaf(leaf keypath.Leaf, literals []ir.Value) bool {
	if leaf.Type.Searchable() {
		return true
	}
	if leaf.Type != schema.TypeMixed {
		return false
	}
	for _, lit := range literals {
		switch lit.(type) {
		case ir.String, ir.Binary:
		default:
			return false
		}
	}
	return true
}

// likeLeaf is searchableLeaf without binary: wildcards match characters.
func likeLeaf(leaf keypath.Leaf, literals []ir.Value) bool {
	if leaf.Type == schema.TypeString {
		return true
	}
	if leaf.Type != schema.TypeMixed {
		return false
	}
	for _, lit := range literals {
		if _, ok := lit.(ir.String); !ok {
			return false
		}
	}
	return true
}

func membershipPath(p keypath.Path) bool {
	if p.Leaf.Collection != schema.CollectionNone || p.Leaf.Multi {
		return true
	}
	agg, ok := p.LastAggregate()
	return ok && (agg == keypath.AggKeys || agg == keypath.AggValues)
}
