package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/query"
)

// Predicate is a parsed format string with its arguments bound.
// A Predicate is immutable and may be evaluated concurrently.
type Predicate struct {
	format string
	root   node
}

// Format returns the format string p was parsed from.
func (p *Predicate) Format() string { return p.format }

// Parse parses format and binds args to its placeholders in order of
// appearance. A nil argument binds as null.
func Parse(format string, args []ir.Value) (*Predicate, error) {
	tree, err := predicateParser.ParseString("", format)
	if err != nil {
		return nil, syntaxError(format, err)
	}

	b := &binder{args: args}
	root, err := b.or(tree)
	if err != nil {
		return nil, &ParseError{Code: ErrCodeSyntax, Format: format, Offset: b.offset, Message: err.Error()}
	}
	if b.next != len(args) {
		return nil, &ParseError{
			Code:    ErrCodeArgCount,
			Format:  format,
			Offset:  -1,
			Message: fmt.Sprintf("%d placeholders but %d arguments", b.next, len(args)),
		}
	}
	return &Predicate{format: format, root: root}, nil
}

func syntaxError(format string, err error) *ParseError {
	pe := &ParseError{Code: ErrCodeSyntax, Format: format, Offset: -1, Message: err.Error()}
	var perr participle.Error
	if errors.As(err, &perr) {
		pe.Offset = perr.Position().Offset
		pe.Message = perr.Message()
	}
	return pe
}

// binder converts the syntax tree into evaluation nodes, consuming one
// argument per placeholder in source order.
type binder struct {
	args   []ir.Value
	next   int
	offset int
}

func (b *binder) placeholder() ir.Value {
	i := b.next
	b.next++
	if i >= len(b.args) || b.args[i] == nil {
		return ir.Null{}
	}
	return b.args[i]
}

func (b *binder) or(e *orExpr) (node, error) {
	terms := make([]node, 0, len(e.Terms))
	for _, t := range e.Terms {
		n, err := b.and(t)
		if err != nil {
			return nil, err
		}
		terms = append(terms, n)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return orNode(terms), nil
}

func (b *binder) and(e *andExpr) (node, error) {
	terms := make([]node, 0, len(e.Terms))
	for _, t := range e.Terms {
		n, err := b.unary(t)
		if err != nil {
			return nil, err
		}
		terms = append(terms, n)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return andNode(terms), nil
}

func (b *binder) unary(e *unaryExpr) (node, error) {
	if e.Not != nil {
		child, err := b.unary(e.Not)
		if err != nil {
			return nil, err
		}
		return notNode{child: child}, nil
	}

	p := e.Primary
	switch {
	case p.Group != nil:
		return b.or(p.Group)
	case p.Const != "":
		return constNode(strings.EqualFold(p.Const, "TRUEPREDICATE")), nil
	}
	return b.comparison(p.Test)
}

// comparisonOps maps grammar tokens, aliases included, to operators.
var comparisonOps = map[string]query.Operator{
	"==":         query.OpEqual,
	"=":          query.OpEqual,
	"!=":         query.OpNotEqual,
	"<>":         query.OpNotEqual,
	"<":          query.OpLess,
	"<=":         query.OpLessEqual,
	"=<":         query.OpLessEqual,
	">":          query.OpGreater,
	">=":         query.OpGreaterEqual,
	"=>":         query.OpGreaterEqual,
	"IN":         query.OpIn,
	"BETWEEN":    query.OpRangeClosed,
	"BEGINSWITH": query.OpBeginsWith,
	"ENDSWITH":   query.OpEndsWith,
	"CONTAINS":   query.OpContains,
	"LIKE":       query.OpLike,
}

func (b *binder) comparison(e *comparisonExpr) (node, error) {
	b.offset = e.Pos.Offset

	op, ok := comparisonOps[strings.ToUpper(e.Op)]
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", e.Op)
	}
	var opts query.StringOptions
	if e.Options != "" {
		var err error
		if opts, err = query.ParseOptions(e.Options); err != nil {
			return nil, err
		}
	}

	left, err := b.operand(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.operand(e.Right)
	if err != nil {
		return nil, err
	}

	t := &testNode{left: left, right: right, op: op, opts: opts}
	if p, ok := left.(*pathOperand); ok {
		t.quant = p.quant
	}
	return t, nil
}

func (b *binder) operand(e *operandExpr) (operand, error) {
	switch {
	case e.Subquery != nil:
		return b.subquery(e.Subquery)
	case e.Placeholder:
		return literal{b.placeholder()}, nil
	case e.List != nil:
		items := make(listLiteral, 0, len(e.List.Items))
		for _, item := range e.List.Items {
			o, err := b.operand(item)
			if err != nil {
				return nil, err
			}
			items = append(items, o)
		}
		return items, nil
	case e.Number != nil:
		return parseNumber(*e.Number)
	case e.String != nil:
		return literal{ir.String(*e.String)}, nil
	case e.Const != nil:
		switch strings.ToUpper(*e.Const) {
		case "TRUE":
			return literal{ir.Bool(true)}, nil
		case "FALSE":
			return literal{ir.Bool(false)}, nil
		}
		return literal{ir.Null{}}, nil
	}
	return b.path(e.Path)
}

func parseNumber(text string) (operand, error) {
	if !strings.ContainsAny(text, ".eE") {
		n, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return literal{ir.Int(n)}, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("bad number %q", text)
	}
	return literal{ir.Double(f)}, nil
}

func (b *binder) subquery(e *subqueryExpr) (operand, error) {
	if e.Agg != string(keypath.AggCount) {
		return nil, fmt.Errorf("SUBQUERY must be followed by .@count, got .%s", e.Agg)
	}
	coll, err := b.path(e.Collection)
	if err != nil {
		return nil, err
	}
	if coll.quant != quantDefault {
		return nil, fmt.Errorf("SUBQUERY collection cannot be quantified")
	}
	where, err := b.or(e.Where)
	if err != nil {
		return nil, err
	}
	return &subqueryOperand{collection: coll, variable: e.Var, where: where}, nil
}

func (b *binder) path(e *pathExpr) (*pathOperand, error) {
	p := &pathOperand{}
	switch strings.ToUpper(e.Quant) {
	case "ANY", "SOME":
		p.quant = quantAny
	case "ALL":
		p.quant = quantAll
	case "NONE":
		p.quant = quantNone
	}

	if strings.HasPrefix(e.Head, "$") {
		p.variable = e.Head
	} else {
		p.steps = append(p.steps, step{kind: stepField, name: e.Head})
	}

	for _, s := range e.Steps {
		switch {
		case s.Subscript != nil && s.Subscript.Placeholder:
			p.steps = append(p.steps, step{kind: stepKey, key: b.placeholder()})
		case s.Subscript != nil:
			p.steps = append(p.steps, step{kind: stepKey, key: ir.String(*s.Subscript.String)})
		case strings.HasPrefix(s.Field, "@"):
			agg, ok := keypath.ParseAggregate(s.Field)
			if !ok {
				return nil, fmt.Errorf("unknown aggregate %s", s.Field)
			}
			p.steps = append(p.steps, step{kind: stepAggregate, agg: agg})
		default:
			p.steps = append(p.steps, step{kind: stepField, name: s.Field})
		}
	}
	return p, nil
}
