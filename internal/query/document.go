package query

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/schema"
)

// Document is a predicate written as YAML (or JSON):
//
//	root: Person
//	where:
//	  and:
//	    - {path: age, op: ">=", value: 18}
//	    - {path: age, op: "<", value: 65}
//	    - {path: name, op: beginsWith, value: "a", options: c}
//	    - not: {path: tags, op: contains, value: vip}
//	    - subquery:
//	        path: dogs
//	        where: {path: age, op: ">", value: 3}
//	        op: ">="
//	        count: 1
type Document struct {
	Root  string  `yaml:"root" json:"root"`
	Where *Clause `yaml:"where" json:"where"`
}

// Clause is one node of a Document. Exactly one of And, Or, Not, Path,
// Subquery or Const is set.
type Clause struct {
	And      []*Clause       `yaml:"and,omitempty" json:"and,omitempty"`
	Or       []*Clause       `yaml:"or,omitempty" json:"or,omitempty"`
	Not      *Clause         `yaml:"not,omitempty" json:"not,omitempty"`
	Path     string          `yaml:"path,omitempty" json:"path,omitempty"`
	Keys     []any           `yaml:"keys,omitempty" json:"keys,omitempty"`
	Op       string          `yaml:"op,omitempty" json:"op,omitempty"`
	Value    any             `yaml:"value,omitempty" json:"value,omitempty"`
	Values   []any           `yaml:"values,omitempty" json:"values,omitempty"`
	Column   string          `yaml:"column,omitempty" json:"column,omitempty"`
	Options  string          `yaml:"options,omitempty" json:"options,omitempty"`
	Subquery *SubqueryClause `yaml:"subquery,omitempty" json:"subquery,omitempty"`
	Const    *bool           `yaml:"const,omitempty" json:"const,omitempty"`
}

// SubqueryClause counts collection elements matching Where.
type SubqueryClause struct {
	Path  string  `yaml:"path" json:"path"`
	Where *Clause `yaml:"where" json:"where"`
	Op    string  `yaml:"op" json:"op"`
	Count int64   `yaml:"count" json:"count"`
}

// ErrEmptyClause is returned for a clause that sets none of its forms.
var ErrEmptyClause = errors.New("clause sets none of and, or, not, path, subquery, const")

// DecodeDocument parses a YAML or JSON predicate document. Unknown fields
// are rejected.
func DecodeDocument(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding predicate document: %w", err)
	}
	if doc.Root == "" {
		return nil, fmt.Errorf("predicate document: root is required")
	}
	if doc.Where == nil {
		return nil, fmt.Errorf("predicate document: where is required")
	}
	return &doc, nil
}

// Build turns the clause into a node using b. Errors are carried in
// Invalid nodes, like every other builder method.
func (c *Clause) Build(b *Builder) Node {
	if c == nil {
		return Invalid{Err: ErrEmptyClause}
	}

	forms := 0
	for _, set := range []bool{c.And != nil, c.Or != nil, c.Not != nil, c.Path != "", c.Subquery != nil, c.Const != nil} {
		if set {
			forms++
		}
	}
	switch {
	case forms == 0:
		return Invalid{Err: ErrEmptyClause}
	case forms > 1:
		return Invalid{Err: fmt.Errorf("clause mixes %d forms; use and/or to combine", forms)}
	}

	switch {
	case c.Const != nil:
		if *c.Const {
			return b.True()
		}
		return b.False()
	case c.And != nil:
		return b.And(buildAll(b, c.And)...)
	case c.Or != nil:
		return b.Or(buildAll(b, c.Or)...)
	case c.Not != nil:
		return b.Not(c.Not.Build(b))
	case c.Subquery != nil:
		return c.buildSubquery(b)
	}
	return c.buildPath(b)
}

func buildAll(b *Builder, clauses []*Clause) []Node {
	nodes := make([]Node, 0, len(clauses))
	for _, c := range clauses {
		nodes = append(nodes, c.Build(b))
	}
	return nodes
}

func (c *Clause) buildSubquery(b *Builder) Node {
	sq := c.Subquery
	op, ok := ParseOperator(sq.Op)
	if !ok {
		return Invalid{Err: fmt.Errorf("subquery %s: unknown operator %q", sq.Path, sq.Op)}
	}
	if sq.Where == nil {
		return Invalid{Err: fmt.Errorf("subquery %s: where is required", sq.Path)}
	}
	q := b.Path(sq.Path).Subquery(func(inner *Builder) Node {
		return sq.Where.Build(inner)
	})
	return q.count(op, sq.Count)
}

func (c *Clause) buildPath(b *Builder) Node {
	p := b.Path(c.Path, c.Keys...)
	if p.err != nil {
		return Invalid{Err: p.err}
	}

	opts, err := ParseOptions(c.Options)
	if err != nil {
		return Invalid{Err: fmt.Errorf("%s: %w", c.Path, err)}
	}

	switch c.Op {
	case "isNull":
		return p.IsNull()
	case "isNotNull":
		return p.IsNotNull()
	case "containsAny":
		values, err := c.coerceValues(b, p, OpIn)
		if err != nil {
			return Invalid{Err: err}
		}
		return p.ContainsAny(values)
	}

	op, ok := ParseOperator(c.Op)
	if !ok {
		return Invalid{Err: &UnsupportedOperatorError{
			Code:    ErrCodeUnknownOperator,
			Path:    p.path.String(),
			Type:    p.path.Leaf.Type,
			Message: fmt.Sprintf("unknown operator %q", c.Op),
		}}
	}

	if c.Column != "" {
		return p.CompareColumn(op, b.Path(c.Column))
	}

	switch {
	case op.IsRange():
		values, err := c.coerceValues(b, p, op)
		if err != nil {
			return Invalid{Err: err}
		}
		if len(values) != 2 {
			return Invalid{Err: &UnsupportedOperatorError{
				Code:    ErrCodeArity,
				Op:      op,
				Path:    p.path.String(),
				Type:    p.path.Leaf.Type,
				Message: fmt.Sprintf("%s needs exactly two values, got %d", op, len(values)),
			}}
		}
		return p.binary(op, values[0], values[1])
	case op == OpIn:
		values, err := c.coerceValues(b, p, op)
		if err != nil {
			return Invalid{Err: err}
		}
		return p.In(values)
	}

	value, err := coerceValue(b, p, op, c.Value)
	if err != nil {
		return Invalid{Err: err}
	}

	switch {
	case op == OpEqual && opts != 0:
		return p.EqualFold(value, opts)
	case op == OpNotEqual && opts != 0:
		return p.NotEqualFold(value, opts)
	case op == OpContains:
		return p.Contains(value, opts)
	case op.IsComparison():
		return p.compare(op, value)
	}
	return p.build(op, []any{value}, opts, false)
}

func (c *Clause) coerceValues(b *Builder, p *Property, op Operator) (ir.List, error) {
	out := make(ir.List, 0, len(c.Values))
	for _, raw := range c.Values {
		v, err := coerceValue(b, p, op, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// coerceValue converts a decoded document value to the path's leaf type.
func coerceValue(b *Builder, p *Property, op Operator, raw any) (ir.Value, error) {
	leaf := p.path.Leaf
	prop := schema.Property{
		Name:       p.path.String(),
		Type:       leaf.Type,
		ObjectType: leaf.ObjectType,
		Enum:       leaf.Enum,
		Optional:   true,
	}
	v, err := b.resolver.Schema().CoerceElement(raw, prop)
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", &TypeMismatchError{
			Path: p.path.String(),
			Op:   op,
			Want: describeLeaf(leaf),
			Got:  fmt.Sprintf("%T %v", raw, raw),
		}, err)
	}
	return v, nil
}

// Build resolves the document into a predicate tree.
func (d *Document) Build(b *Builder) Node {
	if d.Root != b.Root() {
		return Invalid{Err: fmt.Errorf("document root %s does not match builder root %s", d.Root, b.Root())}
	}
	return d.Where.Build(b)
}
