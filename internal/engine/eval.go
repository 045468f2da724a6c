package engine

import (
	"context"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/query"
)

// node is a parsed predicate term.
type node interface {
	eval(ev *evaluator, sc *scope) (bool, error)
}

type andNode []node

func (n andNode) eval(ev *evaluator, sc *scope) (bool, error) {
	for _, child := range n {
		ok, err := child.eval(ev, sc)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

type orNode []node

func (n orNode) eval(ev *evaluator, sc *scope) (bool, error) {
	for _, child := range n {
		ok, err := child.eval(ev, sc)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

type notNode struct{ child node }

func (n notNode) eval(ev *evaluator, sc *scope) (bool, error) {
	ok, err := n.child.eval(ev, sc)
	return !ok, err
}

type constNode bool

func (n constNode) eval(*evaluator, *scope) (bool, error) { return bool(n), nil }

type quantifier int

const (
	quantDefault quantifier = iota
	quantAny
	quantAll
	quantNone
)

type testNode struct {
	left, right operand
	op          query.Operator
	opts        query.StringOptions
	quant       quantifier
}

func (t *testNode) eval(ev *evaluator, sc *scope) (bool, error) {
	if err := ev.quota.Check(ev.root); err != nil {
		return false, err
	}
	left, err := t.left.resolve(ev, sc)
	if err != nil {
		return false, err
	}
	right, err := t.right.resolve(ev, sc)
	if err != nil {
		return false, err
	}

	var test func(ir.Value) (bool, error)
	switch t.op {
	case query.OpIn:
		members := right.members()
		test = func(l ir.Value) (bool, error) {
			for _, r := range members {
				if equalValues(l, r, t.opts) {
					return true, nil
				}
			}
			return false, nil
		}
	case query.OpRangeClosed:
		lo, hi, err := bounds(right)
		if err != nil {
			return false, err
		}
		test = func(l ir.Value) (bool, error) {
			c1, ok1 := compareOrdered(lo, l)
			c2, ok2 := compareOrdered(l, hi)
			return ok1 && ok2 && c1 <= 0 && c2 <= 0, nil
		}
	default:
		rights := right.leaves(false)
		test = func(l ir.Value) (bool, error) {
			for _, r := range rights {
				if compareValues(l, t.op, r, t.opts) {
					return true, nil
				}
			}
			return false, nil
		}
	}

	values := left.leaves(t.quant != quantDefault)
	switch t.quant {
	case quantAll, quantNone:
		want := t.quant == quantAll
		for _, v := range values {
			ok, err := test(v)
			if err != nil {
				return false, err
			}
			if ok != want {
				return false, nil
			}
		}
		return true, nil
	}
	for _, v := range values {
		ok, err := test(v)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func bounds(r result) (lo, hi ir.Value, err error) {
	if r.kind == resultValue {
		if l, ok := r.value.(ir.List); ok && len(l) == 2 {
			return l[0], l[1], nil
		}
	}
	return nil, nil, evalErrorf(ErrCodeBadOperand, "BETWEEN needs a two-element list")
}

// operand is one side of a comparison.
type operand interface {
	resolve(ev *evaluator, sc *scope) (result, error)
}

type literal struct{ v ir.Value }

func (l literal) resolve(*evaluator, *scope) (result, error) { return single(l.v), nil }

type listLiteral []operand

func (l listLiteral) resolve(ev *evaluator, sc *scope) (result, error) {
	out := make(ir.List, 0, len(l))
	for _, item := range l {
		r, err := item.resolve(ev, sc)
		if err != nil {
			return result{}, err
		}
		if r.kind != resultValue {
			return result{}, evalErrorf(ErrCodeBadOperand, "list items must be single values")
		}
		out = append(out, r.value)
	}
	return single(out), nil
}

type stepKind int

const (
	stepField stepKind = iota
	stepKey
	stepAggregate
)

type step struct {
	kind stepKind
	name string
	key  ir.Value
	agg  keypath.Aggregate
}

type pathOperand struct {
	quant    quantifier
	variable string
	steps    []step
}

func (p *pathOperand) resolve(ev *evaluator, sc *scope) (result, error) {
	start := single(sc.root)
	if p.variable != "" {
		v, ok := sc.lookup(p.variable)
		if !ok {
			return result{}, evalErrorf(ErrCodeUnboundVariable, "%s is not bound", p.variable)
		}
		start = single(v)
	}
	return ev.walk(start, p.steps)
}

type subqueryOperand struct {
	collection *pathOperand
	variable   string
	where      node
}

func (s *subqueryOperand) resolve(ev *evaluator, sc *scope) (result, error) {
	coll, err := s.collection.resolve(ev, sc)
	if err != nil {
		return result{}, err
	}
	var n int64
	for _, v := range coll.leaves(true) {
		ok, err := s.where.eval(ev, sc.bind(s.variable, v))
		if err != nil {
			return result{}, err
		}
		if ok {
			n++
		}
	}
	return single(ir.Int(n)), nil
}

// scope holds the object under evaluation and the subquery variables in
// effect.
type scope struct {
	root   ir.Value
	parent *scope
	name   string
	value  ir.Value
}

func (sc *scope) bind(name string, v ir.Value) *scope {
	return &scope{root: sc.root, parent: sc, name: name, value: v}
}

func (sc *scope) lookup(name string) (ir.Value, bool) {
	for s := sc; s != nil; s = s.parent {
		if s.name == name {
			return s.value, true
		}
	}
	return nil, false
}

// evaluator resolves links through a Source. Loaded objects are cached for
// the duration of one execution.
type evaluator struct {
	ctx    context.Context
	source Source
	root   string
	quota  *QuotaEnforcer
	cache  map[string]ir.Value
}

func newEvaluator(ctx context.Context, src Source, root string, maxSteps int) *evaluator {
	return &evaluator{
		ctx:    ctx,
		source: src,
		root:   root,
		quota:  NewQuotaEnforcer(maxSteps),
		cache:  make(map[string]ir.Value),
	}
}

// deref loads the object ref points to. ok is false for a dangling link.
func (ev *evaluator) deref(ref ir.ObjectRef) (ir.Value, bool, error) {
	key := ref.Type + "/" + ref.Key()
	if v, ok := ev.cache[key]; ok {
		return v, v != nil, nil
	}
	if ev.source == nil {
		return nil, false, nil
	}
	obj, ok, err := ev.source.Object(ev.ctx, ref.Type, ref.Key())
	if err != nil {
		return nil, false, err
	}
	if !ok {
		ev.cache[key] = nil
		return nil, false, nil
	}
	ev.cache[key] = obj.Fields
	return obj.Fields, true, nil
}
