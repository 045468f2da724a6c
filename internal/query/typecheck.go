package query

import (
	"fmt"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/schema"
)

// typeChecker matches literal operands against leaf types. It needs the
// schema for enum cases and embedded object definitions.
type typeChecker struct {
	schema *schema.Schema
}

// describeLeaf renders a leaf type for error messages.
func describeLeaf(l keypath.Leaf) string {
	var s string
	switch l.Type {
	case schema.TypeObject:
		s = "object " + l.ObjectType
	case schema.TypeEnum:
		s = "enum " + l.Enum
	default:
		s = l.Type.String()
	}
	if l.Collection != schema.CollectionNone {
		s = fmt.Sprintf("%s<%s>", l.Collection, s)
	}
	if l.Optional {
		s += "?"
	}
	return s
}

func describeValue(v ir.Value) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%s %s", v.Kind(), ir.Format(v))
}

// normalize maps a literal onto the leaf's representation where that is
// unambiguous: raw enum values become ir.Enum, and embedded snapshots are
// completed to every declared field in schema order.
func (c typeChecker) normalize(leaf keypath.Leaf, v ir.Value) ir.Value {
	switch leaf.Type {
	case schema.TypeEnum:
		switch v.(type) {
		case ir.Int, ir.String:
			if e, ok := c.schema.Enum(leaf.Enum); ok && e.HasCase(v) {
				return ir.Enum{Type: e.Name, Raw: v}
			}
		}
	case schema.TypeObject:
		if emb, ok := v.(ir.Embedded); ok {
			if target, ok := c.linkTarget(leaf); ok && target.Embedded {
				return c.completeEmbedded(target, emb)
			}
		}
	}
	return v
}

func (c typeChecker) completeEmbedded(target *schema.Object, v ir.Embedded) ir.Embedded {
	given := make(map[string]ir.Value, len(v.Fields))
	for _, f := range v.Fields {
		given[f.Name] = f.Value
	}
	out := ir.Embedded{Type: v.Type, Fields: make([]ir.Field, 0, len(target.Properties))}
	for _, p := range target.Properties {
		fv, ok := given[p.Name]
		if !ok {
			fv = schema.ZeroValue(p)
		} else if p.Collection == schema.CollectionNone {
			fv = c.normalize(keypath.Leaf{Type: p.Type, ObjectType: p.ObjectType, Enum: p.Enum}, fv)
		}
		out.Fields = append(out.Fields, ir.Field{Name: p.Name, Value: fv})
	}
	return out
}

// compatible reports whether v may be compared with values of leaf.
func (c typeChecker) compatible(leaf keypath.Leaf, v ir.Value) bool {
	return c.compatibleDepth(leaf, v, 0)
}

func (c typeChecker) compatibleDepth(leaf keypath.Leaf, v ir.Value, depth int) bool {
	if depth > ir.MaxDepth {
		return false
	}
	if leaf.Type == schema.TypeMixed {
		return ir.Depth(v) <= ir.MaxDepth
	}

	switch v := v.(type) {
	case nil, ir.Null:
		return leaf.Optional || leaf.Type == schema.TypeObject
	case ir.Bool:
		return leaf.Type == schema.TypeBool
	case ir.Int:
		return leaf.Type.Numeric() || c.enumCase(leaf, v)
	case ir.Float, ir.Double, ir.Decimal:
		return leaf.Type.Numeric()
	case ir.String:
		return leaf.Type == schema.TypeString || c.enumCase(leaf, v)
	case ir.Binary:
		return leaf.Type == schema.TypeBinary
	case ir.Date:
		return leaf.Type == schema.TypeDate
	case ir.UUID:
		return leaf.Type == schema.TypeUUID
	case ir.Enum:
		return leaf.Type == schema.TypeEnum && v.Type == leaf.Enum && c.enumCase(leaf, v.Raw)
	case ir.ObjectRef:
		target, ok := c.linkTarget(leaf)
		return ok && !target.Embedded && v.Type == target.Name
	case ir.Embedded:
		target, ok := c.linkTarget(leaf)
		return ok && target.Embedded && v.Type == target.Name && c.embeddedFields(target, v, depth+1)
	}
	return false
}

func (c typeChecker) enumCase(leaf keypath.Leaf, raw ir.Value) bool {
	if leaf.Type != schema.TypeEnum {
		return false
	}
	e, ok := c.schema.Enum(leaf.Enum)
	return ok && e.HasCase(raw)
}

func (c typeChecker) linkTarget(leaf keypath.Leaf) (*schema.Object, bool) {
	if leaf.Type != schema.TypeObject {
		return nil, false
	}
	return c.schema.Object(leaf.ObjectType)
}

// embeddedFields checks every field of an embedded snapshot against the
// embedded object's declared properties.
func (c typeChecker) embeddedFields(target *schema.Object, v ir.Embedded, depth int) bool {
	for _, f := range v.Fields {
		p, ok := target.Property(f.Name)
		if !ok {
			return false
		}
		if !c.compatibleProperty(p, f.Value, depth) {
			return false
		}
	}
	return true
}

func (c typeChecker) compatibleProperty(p schema.Property, v ir.Value, depth int) bool {
	elem := keypath.Leaf{Type: p.Type, ObjectType: p.ObjectType, Enum: p.Enum, Optional: p.Optional}
	switch p.Collection {
	case schema.CollectionList, schema.CollectionSet:
		items, ok := v.(ir.List)
		if !ok {
			return false
		}
		for _, item := range items {
			if !c.compatibleDepth(elem, item, depth+1) {
				return false
			}
		}
		return true
	case schema.CollectionMap:
		entries, ok := v.(ir.Map)
		if !ok {
			return false
		}
		for _, item := range entries {
			if !c.compatibleDepth(elem, item, depth+1) {
				return false
			}
		}
		return true
	}
	return c.compatibleDepth(elem, v, depth)
}

// orderClass groups orderable values that compare with each other.
func orderClass(v ir.Value) string {
	if e, ok := v.(ir.Enum); ok {
		v = e.Raw
	}
	switch {
	case ir.IsNumeric(v):
		return "numeric"
	case v != nil && v.Kind() == ir.KindDate:
		return "date"
	}
	return ""
}

// checkOperands type-checks and normalizes the literal operands of an
// expression under construction.
func (c typeChecker) checkOperands(path keypath.Path, op Operator, reversed bool, operands []Operand) ([]Operand, error) {
	out := make([]Operand, len(operands))
	mismatch := func(v ir.Value, want string) error {
		return &TypeMismatchError{Path: path.String(), Op: op, Want: want, Got: describeValue(v)}
	}

	for i, operand := range operands {
		lit, ok := operand.(Literal)
		if !ok {
			out[i] = operand
			continue
		}
		v := lit.Value

		switch {
		case op == OpIn && reversed:
			items, ok := v.(ir.List)
			if !ok {
				return nil, mismatch(v, "list of "+describeLeaf(path.Leaf))
			}
			normalized := make(ir.List, len(items))
			for j, item := range items {
				if !c.compatible(path.Leaf, item) {
					return nil, mismatch(item, describeLeaf(path.Leaf))
				}
				normalized[j] = c.normalize(path.Leaf, item)
			}
			v = normalized

		case op.IsSearch() || op == OpStringEqual || op == OpStringNotEqual:
			if ir.IsNull(v) || !c.compatible(path.Leaf, v) {
				return nil, mismatch(v, describeLeaf(path.Leaf))
			}

		case op.IsRange():
			if ir.IsNull(v) || !c.compatible(path.Leaf, v) {
				return nil, mismatch(v, describeLeaf(path.Leaf))
			}

		default:
			if !c.compatible(path.Leaf, v) {
				return nil, mismatch(v, describeLeaf(path.Leaf))
			}
			v = c.normalize(path.Leaf, v)
		}
		out[i] = Literal{Value: v}
	}

	// Ranges over unordered leaves are left to the validator.
	if op.IsRange() && len(out) == 2 && (path.Leaf.Ordered() || path.Leaf.Type == schema.TypeMixed) {
		lo, loOK := out[0].(Literal)
		hi, hiOK := out[1].(Literal)
		if loOK && hiOK {
			loClass, hiClass := orderClass(lo.Value), orderClass(hi.Value)
			if loClass == "" || loClass != hiClass {
				return nil, &TypeMismatchError{
					Path: path.String(),
					Op:   op,
					Want: "two bounds of the same ordered kind",
					Got:  describeValue(lo.Value) + " and " + describeValue(hi.Value),
				}
			}
		}
	}
	return out, nil
}

// columnsCompatible reports whether two leaves may be compared column to
// column.
func columnsCompatible(a, b keypath.Leaf) bool {
	if a.Type == schema.TypeMixed || b.Type == schema.TypeMixed {
		return true
	}
	if a.Numeric() && b.Numeric() {
		return true
	}
	return a.Type == b.Type && a.ObjectType == b.ObjectType && a.Enum == b.Enum
}
