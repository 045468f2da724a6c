package predicate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/query"
)

// Placeholder is the positional argument token.
const Placeholder = "%@"

const (
	truePredicate  = "TRUEPREDICATE"
	falsePredicate = "FALSEPREDICATE"
)

// CompiledPredicate is a format string plus the arguments for its
// placeholders, in order.
type CompiledPredicate struct {
	Format string
	Args   []ir.Value
}

// Hash returns the predicate's stable identity (see ir.PredicateHash).
func (p CompiledPredicate) Hash() (string, error) {
	return ir.PredicateHash(p.Format, p.Args)
}

// String renders the predicate with its arguments substituted, for logs and
// CLI output. The result is not meant to be parsed.
func (p CompiledPredicate) String() string {
	var sb strings.Builder
	rest := p.Format
	for i := 0; ; i++ {
		j := strings.Index(rest, Placeholder)
		if j < 0 {
			sb.WriteString(rest)
			break
		}
		sb.WriteString(rest[:j])
		if i < len(p.Args) {
			sb.WriteString(ir.Format(p.Args[i]))
		} else {
			sb.WriteString(Placeholder)
		}
		rest = rest[j+len(Placeholder):]
	}
	return sb.String()
}

// Describe renders the format and each argument with its kind on separate
// lines. Used for golden files.
func (p CompiledPredicate) Describe() string {
	var sb strings.Builder
	sb.WriteString("format: ")
	sb.WriteString(p.Format)
	sb.WriteString("\nargs:")
	if len(p.Args) == 0 {
		sb.WriteString(" []\n")
		return sb.String()
	}
	sb.WriteByte('\n')
	for _, a := range p.Args {
		kind := ir.KindNull
		if a != nil {
			kind = a.Kind()
		}
		fmt.Fprintf(&sb, "  - %s %s\n", kind, ir.Format(a))
	}
	return sb.String()
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithLogger sets the logger compilation details are written to at debug
// level.
func WithLogger(l *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		c.logger = l
	}
}

// Compiler turns query trees into compiled predicates.
type Compiler struct {
	logger *slog.Logger
}

// NewCompiler creates a Compiler. The logger defaults to slog.Default().
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCompiler = NewCompiler()

// Compile validates n and compiles it with a default Compiler.
func Compile(n query.Node) (CompiledPredicate, error) {
	return defaultCompiler.Compile(n)
}

// MustCompile is like Compile but panics on error.
// Use only in tests or when the tree is known to be valid.
func MustCompile(n query.Node) CompiledPredicate {
	p, err := Compile(n)
	if err != nil {
		panic(err)
	}
	return p
}

// Compile validates n and lowers it into a CompiledPredicate. A validation
// failure aborts compilation; the returned error aggregates every violation
// (each reachable through errors.As).
func (c *Compiler) Compile(n query.Node) (CompiledPredicate, error) {
	if res := query.Validate(n); !res.Valid {
		return CompiledPredicate{}, fmt.Errorf("invalid predicate: %w", res.Err())
	}

	st := &compilation{}
	f, err := st.node(n, "")
	if err != nil {
		return CompiledPredicate{}, fmt.Errorf("compile predicate: %w", err)
	}

	p := CompiledPredicate{Format: f.text, Args: f.args}
	if p.Args == nil {
		p.Args = []ir.Value{}
	}
	checkParity(p)

	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		hash, _ := p.Hash()
		c.logger.Debug("predicate compiled",
			"format", p.Format,
			"args", len(p.Args),
			"hash", hash,
		)
	}
	return p, nil
}

// fragment is compiled text with the arguments for its placeholders.
type fragment struct {
	text string
	args []ir.Value
	prec Precedence
}

// compilation is the state of one Compile call.
type compilation struct {
	nextVar int
}

func (st *compilation) newVar() string {
	v := fmt.Sprintf("$col%d", st.nextVar)
	st.nextVar++
	return v
}

// node compiles n with paths rendered relative to scope ("" at the root,
// "$colN" inside a subquery).
func (st *compilation) node(n query.Node, scope string) (fragment, error) {
	switch n := n.(type) {
	case query.And:
		return st.join(n.Children, scope, " && ", PrecAnd, truePredicate)
	case query.Or:
		return st.join(n.Children, scope, " || ", PrecOr, falsePredicate)
	case query.Not:
		e, ok := n.Child.(*query.Expression)
		if !ok {
			return fragment{}, fmt.Errorf("NOT over %T", n.Child)
		}
		return st.expression(e, scope, true)
	case *query.Expression:
		return st.expression(n, scope, false)
	case *query.Subquery:
		return st.subquery(n, scope)
	case query.Invalid:
		return fragment{}, n.Err
	}
	return fragment{}, fmt.Errorf("unsupported node type: %T", n)
}

func (st *compilation) join(children []query.Node, scope, sep string, prec Precedence, empty string) (fragment, error) {
	if len(children) == 0 {
		return fragment{text: empty, prec: PrecTest}, nil
	}
	if len(children) == 1 {
		return st.node(children[0], scope)
	}

	parts := make([]string, 0, len(children))
	var args []ir.Value
	for _, child := range children {
		f, err := st.node(child, scope)
		if err != nil {
			return fragment{}, err
		}
		parts = append(parts, wrap(f, prec))
		args = append(args, f.args...)
	}
	return fragment{text: strings.Join(parts, sep), args: args, prec: prec}, nil
}

// wrap parenthesizes f when it binds looser than its context.
func wrap(f fragment, outer Precedence) string {
	if f.prec < outer {
		return "(" + f.text + ")"
	}
	return f.text
}

func (st *compilation) subquery(s *query.Subquery, scope string) (fragment, error) {
	coll := renderPath(s.Collection, scope, false)
	v := st.newVar()
	inner, err := st.node(s.Where, v)
	if err != nil {
		return fragment{}, fmt.Errorf("subquery %s: %w", s.Collection, err)
	}

	text := fmt.Sprintf("SUBQUERY(%s, %s, %s).@count %s %s", coll.text, v, inner.text, s.Op.Token(), Placeholder)
	args := concat(coll.args, inner.args, []ir.Value{ir.Int(s.Count)})
	return fragment{text: text, args: args, prec: PrecTest}, nil
}

func (st *compilation) expression(e *query.Expression, scope string, negated bool) (fragment, error) {
	if f, ok, err := st.embedded(e, scope, negated); ok || err != nil {
		return f, err
	}

	path, op, operands := e.Path, e.Op, e.Operands
	if len(operands) == 1 {
		if col, ok := operands[0].(query.Column); ok && col.Path.Leaf.Multi && !path.Leaf.Multi {
			path, op, operands = col.Path, flip(op), []query.Operand{query.Column{Path: e.Path}}
		}
	}

	var l Lowering
	if op == query.OpIn && e.Reversed {
		l = reversedIn
	} else {
		var err error
		if l, err = Lower(op, path.Leaf, e.Options); err != nil {
			return fragment{}, err
		}
	}

	f, err := expand(l, path, scope, operands)
	if err != nil {
		return fragment{}, err
	}
	if negated {
		f = fragment{text: "NOT " + wrap(f, PrecNot), args: f.args, prec: PrecNot}
	}
	return f, nil
}

// expand fills a lowering template for path and operands.
func expand(l Lowering, path keypath.Path, scope string, operands []query.Operand) (fragment, error) {
	var sb strings.Builder
	var args []ir.Value
	next := 0
	tmpl := l.Template

	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '%' || i+1 == len(tmpl) {
			sb.WriteByte(tmpl[i])
			continue
		}
		i++
		var r fragment
		switch tmpl[i] {
		case 'p':
			r = renderPath(path, scope, path.Leaf.Multi)
		case 'b':
			r = renderPath(path, scope, false)
		case 'm':
			r = renderPath(path.WithAggregate(keypath.AggMin), scope, false)
		case 'M':
			r = renderPath(path.WithAggregate(keypath.AggMax), scope, false)
		case '@':
			if next >= len(operands) {
				return fragment{}, fmt.Errorf("%s: template %q needs more than %d operands", path, tmpl, len(operands))
			}
			r = renderOperand(operands[next], scope)
			next++
		default:
			return fragment{}, fmt.Errorf("unknown template verb %%%c", tmpl[i])
		}
		sb.WriteString(r.text)
		args = append(args, r.args...)
	}
	if next != len(operands) {
		return fragment{}, fmt.Errorf("%s: template %q used %d of %d operands", path, tmpl, next, len(operands))
	}
	return fragment{text: sb.String(), args: args, prec: l.Prec}, nil
}

// renderPath writes path relative to scope. Map subscript keys become
// arguments in the order they appear.
func renderPath(p keypath.Path, scope string, anyPrefix bool) fragment {
	text := p.WithVariable(scope).String()
	if anyPrefix {
		text = "ANY " + text
	}
	var args []ir.Value
	for _, k := range p.Keys() {
		args = append(args, argValue(k))
	}
	return fragment{text: text, args: args, prec: PrecTest}
}

func renderOperand(o query.Operand, scope string) fragment {
	switch o := o.(type) {
	case query.Column:
		return renderPath(o.Path, scope, false)
	case query.Literal:
		return fragment{text: Placeholder, args: []ir.Value{argValue(o.Value)}, prec: PrecTest}
	}
	return fragment{text: Placeholder, args: []ir.Value{ir.Null{}}, prec: PrecTest}
}

// argValue converts an operand to the form the query engine binds: enums
// by raw value, Go nil as null.
func argValue(v ir.Value) ir.Value {
	switch v := v.(type) {
	case nil:
		return ir.Null{}
	case ir.Enum:
		return v.Raw
	case ir.List:
		out := make(ir.List, len(v))
		for i, item := range v {
			out[i] = argValue(item)
		}
		return out
	}
	return v
}

func concat(parts ...[]ir.Value) []ir.Value {
	var out []ir.Value
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
