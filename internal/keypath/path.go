// Package keypath resolves chains of property accessors against a schema
// into property paths.
//
// A Path is the dot-separated column path the query engine understands
// ("owner.address.city", "dogs.@min.age", "prices[%@]") together with the
// semantic type of its leaf. Paths are immutable once resolved; resolving
// the same accessor chain twice yields Equal paths.
//
// Links and embedded objects are traversed transparently: their optionality
// does not survive into the path. A missing link at query time simply makes
// the test fail for that object.
package keypath

import (
	"slices"
	"strings"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/schema"
)

// SegmentKind classifies one hop of a path.
type SegmentKind int

const (
	// SegmentField is a scalar property.
	SegmentField SegmentKind = iota
	// SegmentLink is a to-one link or embedded object traversed to reach
	// further properties.
	SegmentLink
	// SegmentCollection is a list, set or map property.
	SegmentCollection
	// SegmentAggregate is an aggregate marker such as @min or @allKeys.
	SegmentAggregate
	// SegmentKey is a map subscript. Its key is bound as a predicate argument.
	SegmentKey
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentField:
		return "field"
	case SegmentLink:
		return "link"
	case SegmentCollection:
		return "collection"
	case SegmentAggregate:
		return "aggregate"
	case SegmentKey:
		return "key"
	}
	return "unknown"
}

// Aggregate is a collection aggregate marker, written as it appears in a path.
type Aggregate string

const (
	AggMin    Aggregate = "@min"
	AggMax    Aggregate = "@max"
	AggSum    Aggregate = "@sum"
	AggAvg    Aggregate = "@avg"
	AggCount  Aggregate = "@count"
	AggKeys   Aggregate = "@allKeys"
	AggValues Aggregate = "@allValues"
)

// ParseAggregate maps "@min" etc. to its Aggregate.
func ParseAggregate(s string) (Aggregate, bool) {
	switch a := Aggregate(s); a {
	case AggMin, AggMax, AggSum, AggAvg, AggCount, AggKeys, AggValues:
		return a, true
	}
	return "", false
}

// Segment is one hop of a resolved path.
type Segment struct {
	Kind      SegmentKind
	Name      string    // property name for field, link and collection segments
	Key       ir.Value  // map key for SegmentKey
	Aggregate Aggregate // marker for SegmentAggregate
}

func (s Segment) equal(o Segment) bool {
	if s.Kind != o.Kind || s.Name != o.Name || s.Aggregate != o.Aggregate {
		return false
	}
	if s.Kind == SegmentKey {
		return ir.Equal(s.Key, o.Key)
	}
	return true
}

// Leaf describes the value a path yields.
type Leaf struct {
	Type       schema.Type
	ObjectType string      // target object type when Type is schema.TypeObject
	Enum       string      // enum name when Type is schema.TypeEnum
	EnumRaw    schema.Type // raw value type of Enum
	Collection schema.CollectionKind
	Optional   bool

	// Multi is set when the path yields several values per object: the leaf
	// is a collection or the path crosses a to-many hop that no aggregate
	// collapsed. Comparisons on such paths are existential (ANY).
	Multi bool

	// Aggregated is set when an aggregate marker appears in the path.
	Aggregated bool
}

// Ordered reports whether the leaf supports <, <=, >, >= and ranges.
// Enums with numeric raw values order by raw value.
func (l Leaf) Ordered() bool {
	return l.Type.Ordered() || l.numericEnum()
}

// Numeric reports whether the leaf can be summed and averaged.
func (l Leaf) Numeric() bool {
	return l.Type.Numeric() || l.numericEnum()
}

func (l Leaf) numericEnum() bool {
	return l.Type == schema.TypeEnum && l.EnumRaw.Numeric()
}

// Path is a resolved property path.
type Path struct {
	Root     string
	Segments []Segment
	Leaf     Leaf

	// Var, when set, renders the path relative to a subquery variable
	// ("$col0.age").
	Var string

	chain []Accessor
}

// String renders the path as the query engine expects it. Map keys render
// as "[%@]" placeholders; their values are returned by Keys in order.
func (p Path) String() string {
	var sb strings.Builder
	if p.Var != "" {
		sb.WriteString(p.Var)
	}
	for i, seg := range p.Segments {
		if seg.Kind == SegmentKey {
			sb.WriteString("[%@]")
			continue
		}
		if i > 0 || p.Var != "" {
			sb.WriteByte('.')
		}
		if seg.Kind == SegmentAggregate {
			sb.WriteString(string(seg.Aggregate))
		} else {
			sb.WriteString(seg.Name)
		}
	}
	return sb.String()
}

// Keys returns the map subscript keys in the order they appear in String.
func (p Path) Keys() []ir.Value {
	var keys []ir.Value
	for _, seg := range p.Segments {
		if seg.Kind == SegmentKey {
			keys = append(keys, seg.Key)
		}
	}
	return keys
}

// Equal reports whether two paths have the same root, segments and leaf.
func (p Path) Equal(o Path) bool {
	return p.Root == o.Root &&
		p.Var == o.Var &&
		p.Leaf == o.Leaf &&
		slices.EqualFunc(p.Segments, o.Segments, Segment.equal)
}

// IsZero reports whether p is the zero Path.
func (p Path) IsZero() bool {
	return p.Root == "" && len(p.Segments) == 0
}

// LastAggregate returns the last aggregate marker in the path, if any.
func (p Path) LastAggregate() (Aggregate, bool) {
	for i := len(p.Segments) - 1; i >= 0; i-- {
		if p.Segments[i].Kind == SegmentAggregate {
			return p.Segments[i].Aggregate, true
		}
	}
	return "", false
}

// ToManyIndex returns the index of the first collection segment that is not
// collapsed by a following aggregate or key, or -1.
func (p Path) ToManyIndex() int {
	for i, seg := range p.Segments {
		if seg.Kind != SegmentCollection {
			continue
		}
		if i+1 < len(p.Segments) {
			next := p.Segments[i+1].Kind
			if next == SegmentAggregate || next == SegmentKey {
				continue
			}
		}
		return i
	}
	return -1
}

// CollectionPrefix splits p at its first to-many segment. prefix ends with
// the collection segment; rest holds the remaining segments. ok is false
// when the path has no to-many hop.
func (p Path) CollectionPrefix() (prefix Path, rest []Segment, ok bool) {
	i := p.ToManyIndex()
	if i < 0 {
		return Path{}, nil, false
	}
	prefix = Path{
		Root:     p.Root,
		Var:      p.Var,
		Segments: slices.Clone(p.Segments[:i+1]),
		Leaf:     p.Leaf,
	}
	return prefix, slices.Clone(p.Segments[i+1:]), true
}

// WithAggregate returns a copy of p with agg inserted directly after its
// first to-many segment, collapsing it. Used to rewrite ranges over
// multi-valued paths into @min/@max bounds. p is returned unchanged when
// it has no to-many hop.
func (p Path) WithAggregate(agg Aggregate) Path {
	i := p.ToManyIndex()
	if i < 0 {
		return p
	}
	segs := make([]Segment, 0, len(p.Segments)+1)
	segs = append(segs, p.Segments[:i+1]...)
	segs = append(segs, Segment{Kind: SegmentAggregate, Aggregate: agg})
	segs = append(segs, p.Segments[i+1:]...)

	out := p
	out.Segments = segs
	out.Leaf.Collection = schema.CollectionNone
	out.Leaf.Multi = false
	out.Leaf.Aggregated = true
	out.chain = nil
	return out
}

// WithVariable returns a copy of p rendered relative to a subquery variable.
func (p Path) WithVariable(name string) Path {
	p.Var = name
	return p
}

// Accessors returns the accessor chain p was resolved from.
func (p Path) Accessors() []Accessor {
	return slices.Clone(p.chain)
}
