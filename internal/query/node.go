// Package query is the expression node model for predicates: property
// paths combined with operators and literal operands into boolean trees,
// plus the type checks and validation rules the query engine imposes.
//
// Trees are built with a Builder (or decoded from a Document), validated
// with Validate, and compiled by the predicate package. All node types are
// immutable once constructed.
package query

import (
	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/keypath"
)

// Node is a predicate tree node.
//
// This is a sealed interface - only types in this package implement it.
// Node types:
//   - *Expression: one comparison, membership, range or search test
//   - Not: negation of a membership or CONTAINS expression
//   - And, Or: boolean connectives
//   - *Subquery: count of collection elements matching an inner predicate
//   - Invalid: a construction error, reported by Validate
type Node interface {
	queryNode() // Marker method - seals interface to this package
}

// Operand is an expression operand: a literal value or another column.
type Operand interface {
	operand()
}

// Literal is a bound value. It becomes one %@ argument when compiled
// (embedded snapshots expand to one argument per persisted field).
type Literal struct {
	Value ir.Value
}

// Column compares against another property path of the same object.
type Column struct {
	Path keypath.Path
}

func (Literal) operand() {}
func (Column) operand()  {}

// Expression is a single test of a property path.
//
// Semantics by operator:
//
//	== != < <= > >=        path OP operand
//	OpRangeHalfOpen        lo <= path < hi         (Operands: lo, hi)
//	OpRangeClosed          lo <= path <= hi        (Operands: lo, hi)
//	OpIn                   operand IN path         (path is a collection)
//	OpIn, Reversed         path IN operand         (operand is a list)
//	search operators       path OP[options] operand
//
// Options is non-zero only for operators where AcceptsOptions is true.
type Expression struct {
	Path     keypath.Path
	Op       Operator
	Operands []Operand
	Options  StringOptions
	Reversed bool
}

// Not negates its child. Only membership and CONTAINS expressions may be
// negated.
type Not struct {
	Child Node
}

// And is satisfied when every child is. An empty And is always true.
type And struct {
	Children []Node
}

// Or is satisfied when any child is. An empty Or is always false.
type Or struct {
	Children []Node
}

// Subquery counts the elements of a to-many collection matching Where and
// compares the count:
//
//	SUBQUERY(Collection, $var, Where).@count Op Count
//
// Paths inside Where are rooted at the collection's element type.
type Subquery struct {
	Collection keypath.Path
	Where      Node
	Op         Operator
	Count      int64
}

// Invalid carries an error raised while building a node, so that fluent
// construction never panics. Validate reports it.
type Invalid struct {
	Err error
}

func (*Expression) queryNode() {}
func (Not) queryNode()         {}
func (And) queryNode()         {}
func (Or) queryNode()          {}
func (*Subquery) queryNode()   {}
func (Invalid) queryNode()     {}

// AndOf combines nodes with AND, flattening nested And groups.
func AndOf(nodes ...Node) Node {
	out := And{Children: make([]Node, 0, len(nodes))}
	for _, n := range nodes {
		if inner, ok := n.(And); ok {
			out.Children = append(out.Children, inner.Children...)
			continue
		}
		out.Children = append(out.Children, n)
	}
	if len(out.Children) == 1 {
		return out.Children[0]
	}
	return out
}

// OrOf combines nodes with OR, flattening nested Or groups.
func OrOf(nodes ...Node) Node {
	out := Or{Children: make([]Node, 0, len(nodes))}
	for _, n := range nodes {
		if inner, ok := n.(Or); ok {
			out.Children = append(out.Children, inner.Children...)
			continue
		}
		out.Children = append(out.Children, n)
	}
	if len(out.Children) == 1 {
		return out.Children[0]
	}
	return out
}

// Literals returns the literal operand values of e in operand order.
func (e *Expression) Literals() []ir.Value {
	var out []ir.Value
	for _, op := range e.Operands {
		if lit, ok := op.(Literal); ok {
			out = append(out, lit.Value)
		}
	}
	return out
}
