package keypath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/schema"
)

type accessorKind int

const (
	accessField accessorKind = iota
	accessKey
	accessAggregate
)

// Accessor is one step of a property chain: a property name, a map key or
// an aggregate.
type Accessor struct {
	kind accessorKind
	name string
	key  any
	agg  Aggregate
}

// Field accesses the named property of the current object type.
func Field(name string) Accessor { return Accessor{kind: accessField, name: name} }

// Key subscripts a map property. The key must be a string.
func Key(k any) Accessor { return Accessor{kind: accessKey, key: k} }

func Min() Accessor    { return Accessor{kind: accessAggregate, agg: AggMin} }
func Max() Accessor    { return Accessor{kind: accessAggregate, agg: AggMax} }
func Sum() Accessor    { return Accessor{kind: accessAggregate, agg: AggSum} }
func Avg() Accessor    { return Accessor{kind: accessAggregate, agg: AggAvg} }
func Count() Accessor  { return Accessor{kind: accessAggregate, agg: AggCount} }
func Keys() Accessor   { return Accessor{kind: accessAggregate, agg: AggKeys} }
func Values() Accessor { return Accessor{kind: accessAggregate, agg: AggValues} }

// Agg returns the accessor for an aggregate marker.
func Agg(a Aggregate) Accessor { return Accessor{kind: accessAggregate, agg: a} }

func (a Accessor) String() string {
	switch a.kind {
	case accessKey:
		return fmt.Sprintf("[%v]", a.key)
	case accessAggregate:
		return string(a.agg)
	}
	return a.name
}

// Resolver resolves accessor chains against a read-only schema. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	schema *schema.Schema
}

// NewResolver creates a resolver for s. s must not be mutated while the
// resolver is in use.
func NewResolver(s *schema.Schema) *Resolver {
	return &Resolver{schema: s}
}

// Schema returns the schema paths are resolved against.
func (r *Resolver) Schema() *schema.Schema {
	return r.schema
}

// resolution is the in-progress state of one Resolve call.
type resolution struct {
	root     string
	obj      *schema.Object
	segs     []Segment
	leaf     Leaf
	terminal Aggregate

	// multiBefore is Leaf.Multi as it was before the most recent
	// collection segment.
	multiBefore bool
}

// Resolve resolves accessors starting at object type root.
func (r *Resolver) Resolve(root string, accessors ...Accessor) (Path, error) {
	obj, ok := r.schema.Object(root)
	if !ok {
		return Path{}, &PathResolutionError{
			Code:    ErrCodeUnknownType,
			Root:    root,
			Message: fmt.Sprintf("unknown object type %q", root),
		}
	}

	st := &resolution{
		root: root,
		obj:  obj,
		leaf: Leaf{Type: schema.TypeObject, ObjectType: root},
	}
	for i, a := range accessors {
		if err := r.apply(st, a); err != nil {
			err.Root = root
			err.Path = chainString(accessors[:i+1])
			return Path{}, err
		}
	}

	return Path{
		Root:     root,
		Segments: st.segs,
		Leaf:     st.leaf,
		chain:    append([]Accessor(nil), accessors...),
	}, nil
}

// Extend resolves further accessors after p. The result keeps p's subquery
// variable.
func (r *Resolver) Extend(p Path, accessors ...Accessor) (Path, error) {
	if p.chain == nil && len(p.Segments) > 0 {
		return Path{}, &PathResolutionError{
			Code:    ErrCodeTerminated,
			Root:    p.Root,
			Path:    p.String(),
			Message: "rewritten paths cannot be extended",
		}
	}
	chain := make([]Accessor, 0, len(p.chain)+len(accessors))
	chain = append(chain, p.chain...)
	chain = append(chain, accessors...)
	out, err := r.Resolve(p.Root, chain...)
	if err != nil {
		return Path{}, err
	}
	out.Var = p.Var
	return out, nil
}

func (r *Resolver) apply(st *resolution, a Accessor) *PathResolutionError {
	if st.terminal != "" {
		return &PathResolutionError{
			Code:    ErrCodeTerminated,
			Message: fmt.Sprintf("nothing may follow %s", st.terminal),
		}
	}
	switch a.kind {
	case accessKey:
		return r.applyKey(st, a.key)
	case accessAggregate:
		return r.applyAggregate(st, a.agg)
	}
	return r.applyField(st, a.name)
}

func (r *Resolver) applyField(st *resolution, name string) *PathResolutionError {
	if st.obj == nil || st.leaf.Type != schema.TypeObject {
		return &PathResolutionError{
			Code:    ErrCodeNotObject,
			Message: fmt.Sprintf("cannot access %q on %s value", name, st.leaf.Type),
		}
	}
	prop, ok := st.obj.Property(name)
	if !ok {
		return &PathResolutionError{
			Code:    ErrCodeUnknownProperty,
			Message: fmt.Sprintf("unknown property %q on %s", name, st.obj.Name),
		}
	}

	seg := Segment{Kind: SegmentField, Name: name}
	switch {
	case prop.IsCollection():
		seg.Kind = SegmentCollection
		st.multiBefore = st.leaf.Multi
	case prop.Type == schema.TypeObject:
		seg.Kind = SegmentLink
	}
	st.segs = append(st.segs, seg)

	st.leaf = Leaf{
		Type:       prop.Type,
		ObjectType: prop.ObjectType,
		Enum:       prop.Enum,
		EnumRaw:    r.enumRaw(prop),
		Collection: prop.Collection,
		Optional:   prop.Optional,
		Multi:      st.leaf.Multi || prop.IsCollection(),
		Aggregated: st.leaf.Aggregated,
	}
	st.obj = nil
	if prop.Type == schema.TypeObject {
		st.obj, _ = r.schema.Object(prop.ObjectType)
	}
	return nil
}

func (r *Resolver) enumRaw(prop schema.Property) schema.Type {
	if prop.Type != schema.TypeEnum {
		return 0
	}
	if e, ok := r.schema.Enum(prop.Enum); ok {
		return e.Raw
	}
	return 0
}

func (r *Resolver) lastIsCollection(st *resolution) bool {
	return len(st.segs) > 0 && st.segs[len(st.segs)-1].Kind == SegmentCollection
}

func (r *Resolver) applyKey(st *resolution, key any) *PathResolutionError {
	if !r.lastIsCollection(st) || st.leaf.Collection != schema.CollectionMap {
		return &PathResolutionError{
			Code:    ErrCodeNotMap,
			Message: "key subscript requires a map property",
		}
	}
	k, err := ir.Of(key)
	if err != nil {
		return &PathResolutionError{Code: ErrCodeNotMap, Message: err.Error()}
	}
	if _, ok := k.(ir.String); !ok {
		return &PathResolutionError{
			Code:    ErrCodeNotMap,
			Message: fmt.Sprintf("map keys are strings, got %s", k.Kind()),
		}
	}

	st.segs = append(st.segs, Segment{Kind: SegmentKey, Key: k})
	st.leaf.Collection = schema.CollectionNone
	st.leaf.Multi = st.multiBefore
	st.leaf.Optional = true
	return nil
}

func (r *Resolver) applyAggregate(st *resolution, agg Aggregate) *PathResolutionError {
	switch agg {
	case AggCount:
		if !r.lastIsCollection(st) {
			return &PathResolutionError{
				Code:    ErrCodeNotCollection,
				Message: "@count requires a collection property",
			}
		}
		st.segs = append(st.segs, Segment{Kind: SegmentAggregate, Aggregate: agg})
		st.leaf = Leaf{Type: schema.TypeInt, Multi: st.multiBefore, Aggregated: true}
		st.obj = nil
		st.terminal = agg
		return nil

	case AggKeys, AggValues:
		if !r.lastIsCollection(st) || st.leaf.Collection != schema.CollectionMap {
			return &PathResolutionError{
				Code:    ErrCodeNotMap,
				Message: fmt.Sprintf("%s requires a map property", agg),
			}
		}
		st.segs = append(st.segs, Segment{Kind: SegmentAggregate, Aggregate: agg})
		if agg == AggKeys {
			st.leaf = Leaf{Type: schema.TypeString, Aggregated: true}
			st.obj = nil
			st.terminal = agg
			return nil
		}
		st.leaf.Collection = schema.CollectionNone
		st.leaf.Multi = false
		st.leaf.Aggregated = true
		return nil
	}

	return r.applyElementAggregate(st, agg)
}

// applyElementAggregate handles @min, @max, @sum and @avg. The marker is
// placed directly after the to-many segment it collapses, so aggregating a
// property of elements yields "dogs.@min.age".
func (r *Resolver) applyElementAggregate(st *resolution, agg Aggregate) *PathResolutionError {
	if !st.leaf.Multi {
		return &PathResolutionError{
			Code:    ErrCodeNotCollection,
			Message: fmt.Sprintf("%s requires a collection", agg),
		}
	}

	idx := -1
	toMany := 0
	for i, seg := range st.segs {
		if seg.Kind != SegmentCollection {
			continue
		}
		if i+1 < len(st.segs) && st.segs[i+1].Kind == SegmentKey {
			continue
		}
		if idx < 0 {
			idx = i
		}
		toMany++
	}
	if toMany != 1 {
		return &PathResolutionError{
			Code:    ErrCodeAggregateType,
			Message: fmt.Sprintf("%s over nested collections is not supported", agg),
		}
	}

	t := st.leaf.Type
	switch agg {
	case AggMin, AggMax:
		if !st.leaf.Ordered() && t != schema.TypeMixed {
			return &PathResolutionError{
				Code:    ErrCodeAggregateType,
				Message: fmt.Sprintf("%s requires numeric or date values, got %s", agg, t),
			}
		}
	default:
		if !st.leaf.Numeric() && t != schema.TypeMixed {
			return &PathResolutionError{
				Code:    ErrCodeAggregateType,
				Message: fmt.Sprintf("%s requires numeric values, got %s", agg, t),
			}
		}
	}

	segs := make([]Segment, 0, len(st.segs)+1)
	segs = append(segs, st.segs[:idx+1]...)
	segs = append(segs, Segment{Kind: SegmentAggregate, Aggregate: agg})
	segs = append(segs, st.segs[idx+1:]...)
	st.segs = segs

	// Enum aggregates yield raw values.
	if t == schema.TypeEnum {
		t = st.leaf.EnumRaw
	}
	leafType := t
	if agg == AggAvg && (t == schema.TypeInt || t == schema.TypeFloat) {
		leafType = schema.TypeDouble
	}
	st.leaf = Leaf{
		Type:       leafType,
		Optional:   agg != AggSum,
		Aggregated: true,
	}
	st.obj = nil
	st.terminal = agg
	return nil
}

// Parse resolves a textual path such as "owner.address.city",
// "dogs.@min.age" or `prices["eur"]`. A "[%@]" subscript takes the next
// value from keys.
func (r *Resolver) Parse(root, text string, keys ...any) (Path, error) {
	accessors, err := ParseAccessors(text, keys...)
	if err != nil {
		var pe *PathResolutionError
		if errors.As(err, &pe) {
			pe.Root = root
		}
		return Path{}, err
	}
	return r.Resolve(root, accessors...)
}

// ParseAccessors splits a textual path into accessors without resolving it.
func ParseAccessors(text string, keys ...any) ([]Accessor, error) {
	syntax := func(msg string) error {
		return &PathResolutionError{Code: ErrCodeSyntax, Path: text, Message: msg}
	}
	if text == "" {
		return nil, syntax("empty path")
	}

	var out []Accessor
	nextKey := 0
	i := 0
	for i < len(text) {
		start := i
		for i < len(text) && text[i] != '.' && text[i] != '[' && text[i] != ']' {
			i++
		}
		name := text[start:i]
		if name == "" {
			return nil, syntax(fmt.Sprintf("empty segment at offset %d", start))
		}
		if strings.HasPrefix(name, "@") {
			agg, ok := ParseAggregate(name)
			if !ok {
				return nil, syntax(fmt.Sprintf("unknown aggregate %s", name))
			}
			out = append(out, Agg(agg))
		} else {
			out = append(out, Field(name))
		}

		for i < len(text) && text[i] == '[' {
			end := strings.IndexByte(text[i:], ']')
			if end < 0 {
				return nil, syntax("unterminated subscript")
			}
			raw := text[i+1 : i+end]
			i += end + 1

			switch {
			case raw == "%@":
				if nextKey >= len(keys) {
					return nil, syntax("not enough keys for [%@] subscripts")
				}
				out = append(out, Key(keys[nextKey]))
				nextKey++
			case strings.HasPrefix(raw, `"`):
				unquoted, err := strconv.Unquote(raw)
				if err != nil {
					return nil, syntax(fmt.Sprintf("bad quoted key %s", raw))
				}
				out = append(out, Key(unquoted))
			default:
				out = append(out, Key(raw))
			}
		}

		if i < len(text) {
			if text[i] != '.' {
				return nil, syntax(fmt.Sprintf("unexpected %q at offset %d", text[i], i))
			}
			i++
			if i == len(text) {
				return nil, syntax("trailing '.'")
			}
		}
	}
	if nextKey != len(keys) {
		return nil, syntax(fmt.Sprintf("%d keys given for %d [%%@] subscripts", len(keys), nextKey))
	}
	return hoistElementAggregate(out), nil
}

// hoistElementAggregate accepts the printed form "dogs.@min.age" by moving
// an inner @min/@max/@sum/@avg to the end of the chain, where the resolver
// expects it.
func hoistElementAggregate(accessors []Accessor) []Accessor {
	for i, a := range accessors {
		if a.kind != accessAggregate || i == len(accessors)-1 {
			continue
		}
		switch a.agg {
		case AggMin, AggMax, AggSum, AggAvg:
			out := make([]Accessor, 0, len(accessors))
			out = append(out, accessors[:i]...)
			out = append(out, accessors[i+1:]...)
			return append(out, a)
		}
	}
	return accessors
}

func chainString(accessors []Accessor) string {
	var sb strings.Builder
	for i, a := range accessors {
		if a.kind != accessKey && i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}
