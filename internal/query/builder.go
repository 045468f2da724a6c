package query

import (
	"fmt"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/schema"
)

// Builder constructs predicate trees rooted at one object type.
//
// Construction never panics: path resolution and type errors are carried
// in Invalid nodes and surface from Validate (and therefore from
// compilation).
//
//	b := query.NewBuilder(resolver, "Person")
//	where := b.And(
//		b.Path("age").GreaterEqual(18),
//		b.Path("age").Less(65),
//	)
type Builder struct {
	resolver *keypath.Resolver
	root     string
	check    typeChecker
}

// NewBuilder creates a builder for predicates over root.
func NewBuilder(r *keypath.Resolver, root string) *Builder {
	return &Builder{
		resolver: r,
		root:     root,
		check:    typeChecker{schema: r.Schema()},
	}
}

// Root returns the object type the builder's paths start from.
func (b *Builder) Root() string { return b.root }

// Resolver returns the resolver paths are resolved with.
func (b *Builder) Resolver() *keypath.Resolver { return b.resolver }

// Path starts an expression on a textual property path such as
// "owner.address.city" or "dogs.@min.age".
func (b *Builder) Path(text string, keys ...any) *Property {
	p, err := b.resolver.Parse(b.root, text, keys...)
	return &Property{b: b, path: p, err: err}
}

// At starts an expression on a path given as accessors.
func (b *Builder) At(accessors ...keypath.Accessor) *Property {
	p, err := b.resolver.Resolve(b.root, accessors...)
	return &Property{b: b, path: p, err: err}
}

// And combines nodes with AND.
func (b *Builder) And(nodes ...Node) Node { return AndOf(nodes...) }

// Or combines nodes with OR.
func (b *Builder) Or(nodes ...Node) Node { return OrOf(nodes...) }

// Not negates n. Only membership and CONTAINS may be negated; anything
// else is rejected by Validate.
func (b *Builder) Not(n Node) Node { return Not{Child: n} }

// True is the predicate every object satisfies.
func (b *Builder) True() Node { return And{} }

// False is the predicate no object satisfies.
func (b *Builder) False() Node { return Or{} }

// Property is a resolved (or failed) property path awaiting an operator.
type Property struct {
	b    *Builder
	path keypath.Path
	err  error
}

// KeyPath returns the resolved path.
func (p *Property) KeyPath() keypath.Path { return p.path }

// Err returns the resolution error, if any.
func (p *Property) Err() error { return p.err }

func (p *Property) extend(accessors ...keypath.Accessor) *Property {
	if p.err != nil {
		return p
	}
	next, err := p.b.resolver.Extend(p.path, accessors...)
	return &Property{b: p.b, path: next, err: err}
}

// Field continues the path through a link, embedded object or collection
// element.
func (p *Property) Field(name string) *Property { return p.extend(keypath.Field(name)) }

// Key subscripts a map property.
func (p *Property) Key(k any) *Property { return p.extend(keypath.Key(k)) }

func (p *Property) Min() *Property    { return p.extend(keypath.Min()) }
func (p *Property) Max() *Property    { return p.extend(keypath.Max()) }
func (p *Property) Sum() *Property    { return p.extend(keypath.Sum()) }
func (p *Property) Avg() *Property    { return p.extend(keypath.Avg()) }
func (p *Property) Count() *Property  { return p.extend(keypath.Count()) }
func (p *Property) Keys() *Property   { return p.extend(keypath.Keys()) }
func (p *Property) Values() *Property { return p.extend(keypath.Values()) }

func (p *Property) Equal(v any) Node        { return p.compare(OpEqual, v) }
func (p *Property) NotEqual(v any) Node     { return p.compare(OpNotEqual, v) }
func (p *Property) Less(v any) Node         { return p.compare(OpLess, v) }
func (p *Property) LessEqual(v any) Node    { return p.compare(OpLessEqual, v) }
func (p *Property) Greater(v any) Node      { return p.compare(OpGreater, v) }
func (p *Property) GreaterEqual(v any) Node { return p.compare(OpGreaterEqual, v) }

// IsNull matches objects whose value at the path is null.
func (p *Property) IsNull() Node { return p.compare(OpEqual, nil) }

// IsNotNull matches objects whose value at the path is not null.
func (p *Property) IsNotNull() Node { return p.compare(OpNotEqual, nil) }

// Between matches lo <= value <= hi.
func (p *Property) Between(lo, hi any) Node { return p.binary(OpRangeClosed, lo, hi) }

// InRange matches lo <= value < hi.
func (p *Property) InRange(lo, hi any) Node { return p.binary(OpRangeHalfOpen, lo, hi) }

// Contains tests element membership when the path is a collection (or a
// map's @allKeys/@allValues), and substring containment otherwise.
func (p *Property) Contains(v any, opts ...StringOptions) Node {
	if p.err == nil && p.isCollection() {
		return p.build(OpIn, []any{v}, combine(opts), false)
	}
	return p.build(OpContains, []any{v}, combine(opts), false)
}

// In matches objects whose value at the path is one of values.
func (p *Property) In(values any) Node { return p.build(OpIn, []any{values}, 0, true) }

// ContainsAny matches objects whose collection shares at least one element
// with values.
func (p *Property) ContainsAny(values any) Node {
	if p.err == nil && !p.isCollection() && !p.path.Leaf.Multi {
		return Invalid{Err: &UnsupportedOperatorError{
			Code:    ErrCodeMembership,
			Op:      OpIn,
			Path:    p.path.String(),
			Type:    p.path.Leaf.Type,
			Message: "containsAny requires a collection path",
		}}
	}
	return p.build(OpIn, []any{values}, 0, true)
}

func (p *Property) BeginsWith(v any, opts ...StringOptions) Node {
	return p.build(OpBeginsWith, []any{v}, combine(opts), false)
}

func (p *Property) EndsWith(v any, opts ...StringOptions) Node {
	return p.build(OpEndsWith, []any{v}, combine(opts), false)
}

// Like matches a wildcard pattern: '*' any run of characters, '?' one.
func (p *Property) Like(pattern any, opts ...StringOptions) Node {
	return p.build(OpLike, []any{pattern}, combine(opts), false)
}

// EqualFold is string equality honoring opts.
func (p *Property) EqualFold(v any, opts StringOptions) Node {
	return p.build(OpStringEqual, []any{v}, opts, false)
}

// NotEqualFold is string inequality honoring opts.
func (p *Property) NotEqualFold(v any, opts StringOptions) Node {
	return p.build(OpStringNotEqual, []any{v}, opts, false)
}

// EqualColumn compares the path against another property of the same object.
func (p *Property) EqualColumn(other *Property) Node { return p.CompareColumn(OpEqual, other) }

// CompareColumn applies op between the path and another property path.
func (p *Property) CompareColumn(op Operator, other *Property) Node {
	if p.err != nil {
		return Invalid{Err: p.err}
	}
	if other.err != nil {
		return Invalid{Err: other.err}
	}
	return &Expression{Path: p.path, Op: op, Operands: []Operand{Column{Path: other.path}}}
}

// Subquery starts a count of collection elements matching where. The
// callback receives a builder rooted at the element type.
//
//	b.Path("dogs").Subquery(func(d *query.Builder) query.Node {
//		return d.Path("age").Greater(3)
//	}).GreaterEqual(2)
func (p *Property) Subquery(where func(*Builder) Node) *CountQuery {
	q := &CountQuery{collection: p}
	if p.err != nil {
		return q
	}
	leaf := p.path.Leaf
	if leaf.Type != schema.TypeObject || leaf.Collection == schema.CollectionNone {
		q.err = &UnsupportedOperatorError{
			Code:    ErrCodeSubquery,
			Path:    p.path.String(),
			Type:    leaf.Type,
			Message: "subquery requires a collection of objects",
		}
		return q
	}
	q.where = where(NewBuilder(p.b.resolver, leaf.ObjectType))
	return q
}

// CountQuery compares the number of collection elements matching a
// subquery.
type CountQuery struct {
	collection *Property
	where      Node
	err        error
}

func (q *CountQuery) Equal(n int64) Node        { return q.count(OpEqual, n) }
func (q *CountQuery) NotEqual(n int64) Node     { return q.count(OpNotEqual, n) }
func (q *CountQuery) Less(n int64) Node         { return q.count(OpLess, n) }
func (q *CountQuery) LessEqual(n int64) Node    { return q.count(OpLessEqual, n) }
func (q *CountQuery) Greater(n int64) Node      { return q.count(OpGreater, n) }
func (q *CountQuery) GreaterEqual(n int64) Node { return q.count(OpGreaterEqual, n) }

func (q *CountQuery) count(op Operator, n int64) Node {
	if q.collection.err != nil {
		return Invalid{Err: q.collection.err}
	}
	if q.err != nil {
		return Invalid{Err: q.err}
	}
	return &Subquery{Collection: q.collection.path, Where: q.where, Op: op, Count: n}
}

func (p *Property) isCollection() bool {
	if p.path.Leaf.Collection != schema.CollectionNone {
		return true
	}
	agg, ok := p.path.LastAggregate()
	return ok && (agg == keypath.AggKeys || agg == keypath.AggValues)
}

func (p *Property) compare(op Operator, v any) Node {
	if other, ok := v.(*Property); ok {
		return p.CompareColumn(op, other)
	}
	return p.build(op, []any{v}, 0, false)
}

func (p *Property) binary(op Operator, lo, hi any) Node {
	return p.build(op, []any{lo, hi}, 0, false)
}

// build converts raw operands, type-checks them and returns the expression.
func (p *Property) build(op Operator, raw []any, opts StringOptions, reversed bool) Node {
	if p.err != nil {
		return Invalid{Err: p.err}
	}

	operands := make([]Operand, 0, len(raw))
	for _, r := range raw {
		v, err := ir.Of(r)
		if err != nil {
			return Invalid{Err: fmt.Errorf("%s %s: %w", p.path, op, err)}
		}
		operands = append(operands, Literal{Value: v})
	}

	checked, err := p.b.check.checkOperands(p.path, op, reversed, operands)
	if err != nil {
		return Invalid{Err: err}
	}
	return &Expression{
		Path:     p.path,
		Op:       op,
		Operands: checked,
		Options:  opts,
		Reversed: reversed,
	}
}

func combine(opts []StringOptions) StringOptions {
	var o StringOptions
	for _, opt := range opts {
		o |= opt
	}
	return o
}
