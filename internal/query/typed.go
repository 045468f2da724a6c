package query

import "time"

// Orderable constrains Go types that map onto ordered property types.
type Orderable interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 |
		~float32 | ~float64 | time.Time
}

// Prop is a property typed by the Go type of its values. Operands are
// checked by the compiler instead of at runtime; the schema check still
// runs when the expression is built.
type Prop[T any] struct {
	p *Property
}

// PropOf starts a typed expression on a textual path.
func PropOf[T any](b *Builder, path string, keys ...any) Prop[T] {
	return Prop[T]{p: b.Path(path, keys...)}
}

// Untyped returns the underlying Property.
func (t Prop[T]) Untyped() *Property { return t.p }

func (t Prop[T]) Equal(v T) Node    { return t.p.Equal(v) }
func (t Prop[T]) NotEqual(v T) Node { return t.p.NotEqual(v) }
func (t Prop[T]) IsNull() Node      { return t.p.IsNull() }
func (t Prop[T]) IsNotNull() Node   { return t.p.IsNotNull() }

// In matches any of values.
func (t Prop[T]) In(values ...T) Node {
	return t.p.In(values)
}

// Contains tests membership of v in a collection property.
func (t Prop[T]) Contains(v T) Node { return t.p.Contains(v) }

// Ord is a property of an ordered type.
type Ord[T Orderable] struct {
	Prop[T]
}

// OrdOf starts a typed expression on an ordered property.
func OrdOf[T Orderable](b *Builder, path string, keys ...any) Ord[T] {
	return Ord[T]{Prop: PropOf[T](b, path, keys...)}
}

func (o Ord[T]) Less(v T) Node         { return o.p.Less(v) }
func (o Ord[T]) LessEqual(v T) Node    { return o.p.LessEqual(v) }
func (o Ord[T]) Greater(v T) Node      { return o.p.Greater(v) }
func (o Ord[T]) GreaterEqual(v T) Node { return o.p.GreaterEqual(v) }

// Between matches lo <= value <= hi.
func (o Ord[T]) Between(lo, hi T) Node { return o.p.Between(lo, hi) }

// InRange matches lo <= value < hi.
func (o Ord[T]) InRange(lo, hi T) Node { return o.p.InRange(lo, hi) }

// Text is a string property.
type Text struct {
	Prop[string]
}

// TextOf starts a typed expression on a string property.
func TextOf(b *Builder, path string, keys ...any) Text {
	return Text{Prop: PropOf[string](b, path, keys...)}
}

func (t Text) BeginsWith(s string, opts ...StringOptions) Node { return t.p.BeginsWith(s, opts...) }
func (t Text) EndsWith(s string, opts ...StringOptions) Node   { return t.p.EndsWith(s, opts...) }
func (t Text) Like(pattern string, opts ...StringOptions) Node { return t.p.Like(pattern, opts...) }

// Contains is substring containment (or membership on a set of strings).
func (t Text) Contains(s string, opts ...StringOptions) Node { return t.p.Contains(s, opts...) }

func (t Text) EqualFold(s string, opts StringOptions) Node    { return t.p.EqualFold(s, opts) }
func (t Text) NotEqualFold(s string, opts StringOptions) Node { return t.p.NotEqualFold(s, opts) }
