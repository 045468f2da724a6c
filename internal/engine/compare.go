package engine

import (
	"bytes"
	"cmp"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/query"
)

// arith is the context for aggregate arithmetic (decimal128 precision).
var arith = apd.BaseContext.WithPrecision(34)

// raw unwraps enum values; stored enums compare by raw value.
func raw(v ir.Value) ir.Value {
	if e, ok := v.(ir.Enum); ok {
		return e.Raw
	}
	return v
}

func compareValues(l ir.Value, op query.Operator, r ir.Value, opts query.StringOptions) bool {
	switch op {
	case query.OpEqual, query.OpStringEqual:
		return equalValues(l, r, opts)
	case query.OpNotEqual, query.OpStringNotEqual:
		return !equalValues(l, r, opts)
	case query.OpLess, query.OpLessEqual, query.OpGreater, query.OpGreaterEqual:
		c, ok := compareOrdered(l, r)
		if !ok {
			return false
		}
		switch op {
		case query.OpLess:
			return c < 0
		case query.OpLessEqual:
			return c <= 0
		case query.OpGreater:
			return c > 0
		}
		return c >= 0
	}

	if lb, ok := l.(ir.Binary); ok {
		return searchBytes(lb, op, r)
	}
	ls, lok := raw(l).(ir.String)
	rs, rok := raw(r).(ir.String)
	if !lok || !rok {
		return false
	}
	s, pattern := normalize(string(ls), opts), normalize(string(rs), opts)
	switch op {
	case query.OpBeginsWith:
		return strings.HasPrefix(s, pattern)
	case query.OpEndsWith:
		return strings.HasSuffix(s, pattern)
	case query.OpContains:
		return strings.Contains(s, pattern)
	case query.OpLike:
		return like(s, pattern)
	}
	return false
}

// searchBytes matches binary values byte for byte. String options do not
// apply and LIKE never matches.
func searchBytes(b ir.Binary, op query.Operator, r ir.Value) bool {
	pattern, ok := r.(ir.Binary)
	if !ok {
		return false
	}
	switch op {
	case query.OpBeginsWith:
		return bytes.HasPrefix(b, pattern)
	case query.OpEndsWith:
		return bytes.HasSuffix(b, pattern)
	case query.OpContains:
		return bytes.Contains(b, pattern)
	}
	return false
}

func equalValues(a, b ir.Value, opts query.StringOptions) bool {
	a, b = raw(a), raw(b)
	if ir.IsNull(a) || ir.IsNull(b) {
		return ir.IsNull(a) && ir.IsNull(b)
	}
	if ir.IsNumeric(a) && ir.IsNumeric(b) {
		c, ok := compareNumbers(a, b)
		return ok && c == 0
	}
	switch av := a.(type) {
	case ir.String:
		if bv, ok := b.(ir.String); ok {
			return normalize(string(av), opts) == normalize(string(bv), opts)
		}
	case ir.ObjectRef:
		if bv, ok := b.(ir.ObjectRef); ok {
			return av.Type == bv.Type && av.Key() != "" && av.Key() == bv.Key()
		}
	}
	return ir.Equal(a, b)
}

// compareOrdered compares numbers, dates and strings. ok is false when the
// values are not mutually ordered.
func compareOrdered(a, b ir.Value) (int, bool) {
	a, b = raw(a), raw(b)
	if ir.IsNumeric(a) && ir.IsNumeric(b) {
		return compareNumbers(a, b)
	}
	switch av := a.(type) {
	case ir.Date:
		if bv, ok := b.(ir.Date); ok {
			return av.Time().Compare(bv.Time()), true
		}
	case ir.String:
		if bv, ok := b.(ir.String); ok {
			return strings.Compare(string(av), string(bv)), true
		}
	}
	return 0, false
}

func compareNumbers(a, b ir.Value) (int, bool) {
	if ai, ok := a.(ir.Int); ok {
		if bi, ok := b.(ir.Int); ok {
			return cmp.Compare(ai, bi), true
		}
	}
	x, ok := toDecimal(a)
	if !ok {
		return 0, false
	}
	y, ok := toDecimal(b)
	if !ok {
		return 0, false
	}
	return x.Cmp(y), true
}

// toDecimal converts a numeric value. Binary floats convert through their
// shortest decimal form so float(0.1) equals double(0.1). NaN is not
// comparable.
func toDecimal(v ir.Value) (*apd.Decimal, bool) {
	switch v := v.(type) {
	case ir.Int:
		return apd.New(int64(v), 0), true
	case ir.Float:
		return floatDecimal(float64(v), 32)
	case ir.Double:
		return floatDecimal(float64(v), 64)
	case ir.Decimal:
		return v.Apd(), true
	}
	return nil, false
}

func floatDecimal(f float64, bits int) (*apd.Decimal, bool) {
	switch {
	case math.IsNaN(f):
		return nil, false
	case math.IsInf(f, 0):
		return &apd.Decimal{Form: apd.Infinite, Negative: f < 0}, true
	}
	d, _, err := apd.NewFromString(strconv.FormatFloat(f, 'g', -1, bits))
	return d, err == nil
}

// normalize applies [c] and [d] options.
func normalize(s string, opts query.StringOptions) string {
	if opts&query.DiacriticInsensitive != 0 {
		t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		if out, _, err := transform.String(t, s); err == nil {
			s = out
		}
	}
	if opts&query.CaseInsensitive != 0 {
		s = cases.Fold().String(s)
	}
	return s
}

// like matches s against a pattern where * matches any run of characters
// and ? exactly one.
func like(s, pattern string) bool {
	sr, pr := []rune(s), []rune(pattern)
	si, pi := 0, 0
	star, mark := -1, 0
	for si < len(sr) {
		switch {
		case pi < len(pr) && pr[pi] == '*':
			star, mark = pi, si
			pi++
		case pi < len(pr) && (pr[pi] == '?' || pr[pi] == sr[si]):
			si++
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(pr) && pr[pi] == '*' {
		pi++
	}
	return pi == len(pr)
}

// fold computes an aggregate over the values of one collection.
func fold(agg keypath.Aggregate, values []ir.Value) (ir.Value, error) {
	if agg == keypath.AggCount {
		return ir.Int(len(values)), nil
	}

	present := make([]ir.Value, 0, len(values))
	for _, v := range values {
		if v = raw(v); !ir.IsNull(v) {
			present = append(present, v)
		}
	}

	switch agg {
	case keypath.AggMin, keypath.AggMax:
		if len(present) == 0 {
			return ir.Null{}, nil
		}
		best := present[0]
		for _, v := range present[1:] {
			c, ok := compareOrdered(v, best)
			if !ok {
				return nil, evalErrorf(ErrCodeBadAggregate, "%s over %s and %s values", agg, v.Kind(), best.Kind())
			}
			if (agg == keypath.AggMin && c < 0) || (agg == keypath.AggMax && c > 0) {
				best = v
			}
		}
		if _, ok := compareOrdered(best, best); !ok {
			return nil, evalErrorf(ErrCodeBadAggregate, "%s over %s values", agg, best.Kind())
		}
		return best, nil

	case keypath.AggSum, keypath.AggAvg:
		if len(present) == 0 {
			if agg == keypath.AggSum {
				return ir.Int(0), nil
			}
			return ir.Null{}, nil
		}
		return sumOrAverage(agg, present)
	}
	return nil, evalErrorf(ErrCodeBadAggregate, "%s cannot be used here", agg)
}

func sumOrAverage(agg keypath.Aggregate, values []ir.Value) (ir.Value, error) {
	allInt, anyDecimal := true, false
	total := apd.New(0, 0)
	for _, v := range values {
		d, ok := toDecimal(v)
		if !ok {
			return nil, evalErrorf(ErrCodeBadAggregate, "%s over %s values", agg, v.Kind())
		}
		switch v.(type) {
		case ir.Int:
		case ir.Decimal:
			allInt, anyDecimal = false, true
		default:
			allInt = false
		}
		if _, err := arith.Add(total, total, d); err != nil {
			return nil, evalErrorf(ErrCodeBadAggregate, "%s: %v", agg, err)
		}
	}

	if agg == keypath.AggAvg {
		if _, err := arith.Quo(total, total, apd.New(int64(len(values)), 0)); err != nil {
			return nil, evalErrorf(ErrCodeBadAggregate, "%s: %v", agg, err)
		}
		allInt = false
	}

	switch {
	case allInt:
		if n, err := total.Int64(); err == nil {
			return ir.Int(n), nil
		}
		return ir.DecimalFromApd(total), nil
	case anyDecimal:
		return ir.DecimalFromApd(total), nil
	}
	f, err := total.Float64()
	if err != nil {
		return nil, evalErrorf(ErrCodeBadAggregate, "%s: %v", agg, err)
	}
	return ir.Double(f), nil
}
