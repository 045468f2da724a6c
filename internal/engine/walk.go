package engine

import (
	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/keypath"
)

type resultKind int

const (
	resultValue  resultKind = iota
	resultGroup             // one result per element of a crossed collection
	resultAbsent            // the path ran through a null or dangling link
)

// result is what a key path yields for one object. Crossing a collection
// produces a group; crossing several produces nested groups, which is what
// lets an aggregate collapse only the nearest collection.
type result struct {
	kind  resultKind
	value ir.Value
	elems []result

	// mapped marks a group produced by applying a step to each element of
	// another group, rather than by reading a collection.
	mapped bool
}

func single(v ir.Value) result { return result{kind: resultValue, value: v} }

func groupOf(elems []result) result { return result{kind: resultGroup, elems: elems} }

var absent = result{kind: resultAbsent}

// leaves flattens r into the values a comparison ranges over. With
// expandMaps set, a map contributes its values instead of itself.
func (r result) leaves(expandMaps bool) []ir.Value {
	switch r.kind {
	case resultAbsent:
		return nil
	case resultGroup:
		var out []ir.Value
		for _, e := range r.elems {
			out = append(out, e.leaves(expandMaps)...)
		}
		return out
	}
	if m, ok := r.value.(ir.Map); ok && expandMaps {
		return mapValues(m)
	}
	return []ir.Value{r.value}
}

// members is r viewed as the right-hand side of IN.
func (r result) members() []ir.Value {
	if r.kind == resultValue {
		switch v := r.value.(type) {
		case ir.List:
			return v
		case ir.Map:
			return mapValues(v)
		}
	}
	return r.leaves(true)
}

func (r result) nested() bool {
	for _, e := range r.elems {
		if e.kind == resultGroup {
			return true
		}
	}
	return false
}

func mapValues(m ir.Map) []ir.Value {
	keys := m.SortedKeys()
	out := make([]ir.Value, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

// wrap turns a stored property value into a result. Lists and sets become
// groups.
func wrap(v ir.Value) result {
	l, ok := v.(ir.List)
	if !ok {
		return single(v)
	}
	elems := make([]result, len(l))
	for i, item := range l {
		elems[i] = single(item)
	}
	return groupOf(elems)
}

// walk applies steps to r.
func (ev *evaluator) walk(r result, steps []step) (result, error) {
	for i, s := range steps {
		var err error
		switch s.kind {
		case stepField:
			r, err = ev.each(r, func(v ir.Value) (result, error) { return ev.field(v, s.name) })
		case stepKey:
			r, err = ev.each(r, func(v ir.Value) (result, error) { return lookupKey(v, s.key) })
		case stepAggregate:
			if s.agg == keypath.AggKeys || s.agg == keypath.AggValues {
				r, err = ev.each(r, func(v ir.Value) (result, error) { return mapEntries(v, s.agg) })
				break
			}
			return ev.aggregate(r, s.agg, steps[i+1:])
		}
		if err != nil {
			return result{}, err
		}
	}
	return r, nil
}

// each applies f to every value in r, keeping r's group structure.
func (ev *evaluator) each(r result, f func(ir.Value) (result, error)) (result, error) {
	switch r.kind {
	case resultAbsent:
		return absent, nil
	case resultGroup:
		out := make([]result, len(r.elems))
		for i, e := range r.elems {
			var err error
			if out[i], err = ev.each(e, f); err != nil {
				return result{}, err
			}
		}
		return result{kind: resultGroup, elems: out, mapped: true}, nil
	}
	return f(r.value)
}

func (ev *evaluator) field(v ir.Value, name string) (result, error) {
	if ref, ok := v.(ir.ObjectRef); ok {
		target, found, err := ev.deref(ref)
		if err != nil {
			return result{}, err
		}
		if !found {
			return absent, nil
		}
		v = target
	}

	switch v := v.(type) {
	case nil, ir.Null:
		return absent, nil
	case ir.Embedded:
		fv, ok := v.Field(name)
		if !ok {
			return result{}, evalErrorf(ErrCodeUnknownProperty, "%s has no property %q", v.Type, name)
		}
		return wrap(fv), nil
	case ir.Map:
		fv, ok := v[name]
		if !ok {
			return single(ir.Null{}), nil
		}
		return wrap(fv), nil
	}
	return result{}, evalErrorf(ErrCodeUnknownProperty, "cannot read %q from a %s value", name, v.Kind())
}

func lookupKey(v ir.Value, key ir.Value) (result, error) {
	switch v := v.(type) {
	case nil, ir.Null:
		return absent, nil
	case ir.Map:
		fv, ok := v[ir.KeyText(key)]
		if !ok {
			return single(ir.Null{}), nil
		}
		return wrap(fv), nil
	}
	return result{}, evalErrorf(ErrCodeBadOperand, "cannot subscript a %s value", v.Kind())
}

func mapEntries(v ir.Value, agg keypath.Aggregate) (result, error) {
	switch v := v.(type) {
	case nil, ir.Null:
		return groupOf(nil), nil
	case ir.Map:
		keys := v.SortedKeys()
		elems := make([]result, len(keys))
		for i, k := range keys {
			if agg == keypath.AggKeys {
				elems[i] = single(ir.String(k))
			} else {
				elems[i] = single(v[k])
			}
		}
		return groupOf(elems), nil
	}
	return result{}, evalErrorf(ErrCodeBadAggregate, "%s needs a map, got %s", agg, v.Kind())
}

// aggregate collapses the innermost groups of r. Outer groups stay
// existential. Steps after the marker are applied to each element first
// ("dogs.@min.age").
func (ev *evaluator) aggregate(r result, agg keypath.Aggregate, rest []step) (result, error) {
	switch r.kind {
	case resultAbsent:
		return absent, nil
	case resultValue:
		switch v := r.value.(type) {
		case nil, ir.Null:
			r = groupOf(nil)
		case ir.Map:
			r = wrap(ir.List(mapValues(v)))
		default:
			return result{}, evalErrorf(ErrCodeBadAggregate, "%s needs a collection, got %s", agg, v.Kind())
		}
	}

	// An empty mapped group has lost its inner collections; it aggregates
	// to no value rather than to the value of an empty collection.
	if r.nested() || (r.mapped && len(r.elems) == 0) {
		out := make([]result, len(r.elems))
		for i, e := range r.elems {
			var err error
			if out[i], err = ev.aggregate(e, agg, rest); err != nil {
				return result{}, err
			}
		}
		return groupOf(out), nil
	}

	values := make([]ir.Value, 0, len(r.elems))
	for _, e := range r.elems {
		if len(rest) == 0 {
			values = append(values, e.leaves(false)...)
			continue
		}
		sub, err := ev.walk(e, rest)
		if err != nil {
			return result{}, err
		}
		values = append(values, sub.leaves(false)...)
	}
	v, err := fold(agg, values)
	if err != nil {
		return result{}, err
	}
	return single(v), nil
}
