package schema

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/roach88/tsq/internal/ir"
)

// Coerce converts a raw decoded YAML/JSON value into an ir.Value matching
// property p. Collections take a sequence (list, set) or a mapping (map)
// whose elements are coerced with CoerceElement.
func (s *Schema) Coerce(raw any, p Property) (ir.Value, error) {
	switch p.Collection {
	case CollectionList, CollectionSet:
		if raw == nil {
			return ir.List{}, nil
		}
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected a sequence for %s, got %T", p.Name, p.Collection, raw)
		}
		out := make(ir.List, 0, len(items))
		for i, item := range items {
			v, err := s.CoerceElement(item, p)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", p.Name, i, err)
			}
			out = append(out, v)
		}
		return out, nil
	case CollectionMap:
		if raw == nil {
			return ir.Map{}, nil
		}
		entries, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected a mapping for map, got %T", p.Name, raw)
		}
		out := make(ir.Map, len(entries))
		for k, item := range entries {
			v, err := s.CoerceElement(item, p)
			if err != nil {
				return nil, fmt.Errorf("%s[%q]: %w", p.Name, k, err)
			}
			out[k] = v
		}
		return out, nil
	}
	return s.CoerceElement(raw, p)
}

// CoerceElement converts a single scalar, link or embedded value of
// property p, ignoring p.Collection.
func (s *Schema) CoerceElement(raw any, p Property) (ir.Value, error) {
	if v, ok := raw.(ir.Value); ok {
		return v, nil
	}
	if raw == nil {
		if p.Optional || p.Type == TypeObject || p.Type == TypeMixed {
			return ir.Null{}, nil
		}
		return nil, fmt.Errorf("%s: null is not allowed for non-optional %s", p.Name, p.Type)
	}

	mismatch := func() error {
		return fmt.Errorf("%s: cannot use %T (%v) as %s", p.Name, raw, raw, p.Type)
	}

	switch p.Type {
	case TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, mismatch()
		}
		return ir.Bool(b), nil

	case TypeInt:
		n, ok := toInt64(raw)
		if !ok {
			return nil, mismatch()
		}
		return ir.Int(n), nil

	case TypeFloat:
		f, ok := toFloat64(raw)
		if !ok {
			return nil, mismatch()
		}
		return ir.Float(float32(f)), nil

	case TypeDouble:
		f, ok := toFloat64(raw)
		if !ok {
			return nil, mismatch()
		}
		return ir.Double(f), nil

	case TypeString:
		str, ok := raw.(string)
		if !ok {
			return nil, mismatch()
		}
		return ir.String(str), nil

	case TypeBinary:
		switch b := raw.(type) {
		case []byte:
			return ir.Binary(b), nil
		case string:
			decoded, err := base64.StdEncoding.DecodeString(b)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid base64: %w", p.Name, err)
			}
			return ir.Binary(decoded), nil
		}
		return nil, mismatch()

	case TypeDate:
		switch t := raw.(type) {
		case time.Time:
			return ir.NewDate(t), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid RFC 3339 date: %w", p.Name, err)
			}
			return ir.NewDate(parsed), nil
		}
		return nil, mismatch()

	case TypeDecimal:
		text, ok := decimalText(raw)
		if !ok {
			return nil, mismatch()
		}
		d, err := ir.ParseDecimal(text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
		return d, nil

	case TypeUUID:
		str, ok := raw.(string)
		if !ok {
			return nil, mismatch()
		}
		u, err := ir.ParseUUID(str)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
		return u, nil

	case TypeEnum:
		return s.coerceEnum(raw, p)

	case TypeObject:
		return s.coerceObjectValue(raw, p)

	case TypeMixed:
		return s.coerceMixed(raw, 0)
	}
	return nil, mismatch()
}

// CoerceObject converts a field mapping into an ordered snapshot of object
// type typeName. Fields follow schema declaration order; absent fields get
// the property's zero value. Unknown fields are an error.
func (s *Schema) CoerceObject(typeName string, fields map[string]any) (ir.Embedded, error) {
	obj, ok := s.Object(typeName)
	if !ok {
		return ir.Embedded{}, fmt.Errorf("unknown object type %q", typeName)
	}
	for name := range fields {
		if _, ok := obj.Property(name); !ok {
			return ir.Embedded{}, fmt.Errorf("%s: unknown property %q", typeName, name)
		}
	}

	out := ir.Embedded{Type: typeName, Fields: make([]ir.Field, 0, len(obj.Properties))}
	for _, p := range obj.Properties {
		raw, present := fields[p.Name]
		var (
			v   ir.Value
			err error
		)
		if present {
			v, err = s.Coerce(raw, p)
		} else {
			v = ZeroValue(p)
		}
		if err != nil {
			return ir.Embedded{}, fmt.Errorf("%s.%w", typeName, err)
		}
		out.Fields = append(out.Fields, ir.Field{Name: p.Name, Value: v})
	}
	return out, nil
}

// ZeroValue is the value an unset property holds.
func ZeroValue(p Property) ir.Value {
	switch p.Collection {
	case CollectionList, CollectionSet:
		return ir.List{}
	case CollectionMap:
		return ir.Map{}
	}
	if p.Optional {
		return ir.Null{}
	}
	switch p.Type {
	case TypeBool:
		return ir.Bool(false)
	case TypeInt:
		return ir.Int(0)
	case TypeFloat:
		return ir.Float(0)
	case TypeDouble:
		return ir.Double(0)
	case TypeString:
		return ir.String("")
	case TypeBinary:
		return ir.Binary{}
	case TypeDate:
		return ir.NewDate(time.Unix(0, 0))
	case TypeDecimal:
		return ir.MustDecimal("0")
	case TypeUUID:
		return ir.UUID{}
	}
	return ir.Null{}
}

func (s *Schema) coerceEnum(raw any, p Property) (ir.Value, error) {
	e, ok := s.Enum(p.Enum)
	if !ok {
		return nil, fmt.Errorf("%s: unknown enum %q", p.Name, p.Enum)
	}
	var rawValue ir.Value
	switch e.Raw {
	case TypeInt:
		n, ok := toInt64(raw)
		if !ok {
			return nil, fmt.Errorf("%s: enum %s expects int raw values, got %T", p.Name, e.Name, raw)
		}
		rawValue = ir.Int(n)
	default:
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%s: enum %s expects string raw values, got %T", p.Name, e.Name, raw)
		}
		rawValue = ir.String(str)
	}
	if !e.HasCase(rawValue) {
		return nil, fmt.Errorf("%s: %s is not a case of enum %s", p.Name, ir.Format(rawValue), e.Name)
	}
	return ir.Enum{Type: e.Name, Raw: rawValue}, nil
}

func (s *Schema) coerceObjectValue(raw any, p Property) (ir.Value, error) {
	target, ok := s.Object(p.ObjectType)
	if !ok {
		return nil, fmt.Errorf("%s: unknown object type %q", p.Name, p.ObjectType)
	}

	if target.Embedded {
		fields, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: embedded %s must be a mapping, got %T", p.Name, target.Name, raw)
		}
		return s.CoerceObject(target.Name, fields)
	}

	switch ref := raw.(type) {
	case string:
		return ir.ObjectRef{Type: target.Name, ID: ref}, nil
	case map[string]any:
		id, ok := ref["id"].(string)
		if !ok {
			return nil, fmt.Errorf("%s: link mapping needs a string id", p.Name)
		}
		if typ, ok := ref["type"].(string); ok && typ != target.Name {
			return nil, fmt.Errorf("%s: link to %s, got %s", p.Name, target.Name, typ)
		}
		return ir.ObjectRef{Type: target.Name, ID: id}, nil
	}
	if n, ok := toInt64(raw); ok {
		return ir.ObjectRef{Type: target.Name, ID: strconv.FormatInt(n, 10)}, nil
	}
	return nil, fmt.Errorf("%s: cannot use %T as link to %s", p.Name, raw, target.Name)
}

// coerceMixed maps untyped data onto the closest ir kind. A mapping of the
// form {$type: <kind>, value: <raw>} forces a specific kind.
func (s *Schema) coerceMixed(raw any, level int) (ir.Value, error) {
	if level > ir.MaxDepth {
		return nil, ir.ErrTooDeep
	}
	switch v := raw.(type) {
	case nil:
		return ir.Null{}, nil
	case []any:
		out := make(ir.List, 0, len(v))
		for _, item := range v {
			elem, err := s.coerceMixed(item, level+1)
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case map[string]any:
		if kindName, ok := v["$type"].(string); ok {
			return s.coerceTagged(kindName, v["value"])
		}
		out := make(ir.Map, len(v))
		for k, item := range v {
			elem, err := s.coerceMixed(item, level+1)
			if err != nil {
				return nil, err
			}
			out[k] = elem
		}
		return out, nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return ir.Int(int64(v)), nil
		}
		return ir.Double(v), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return ir.Int(n), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return ir.Double(f), nil
	}
	return ir.Of(raw)
}

var kindTypes = map[ir.Kind]Type{
	ir.KindBool:    TypeBool,
	ir.KindInt:     TypeInt,
	ir.KindFloat:   TypeFloat,
	ir.KindDouble:  TypeDouble,
	ir.KindString:  TypeString,
	ir.KindBinary:  TypeBinary,
	ir.KindDate:    TypeDate,
	ir.KindDecimal: TypeDecimal,
	ir.KindUUID:    TypeUUID,
}

func (s *Schema) coerceTagged(kindName string, raw any) (ir.Value, error) {
	kind, ok := ir.ParseKind(kindName)
	if !ok {
		return nil, fmt.Errorf("unknown $type %q", kindName)
	}
	if kind == ir.KindNull {
		return ir.Null{}, nil
	}
	if kind == ir.KindObjectRef {
		ref, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("$type object needs a {type, id} mapping")
		}
		typ, _ := ref["type"].(string)
		return s.coerceObjectValue(ref, Property{Name: "$value", Type: TypeObject, ObjectType: typ})
	}
	t, ok := kindTypes[kind]
	if !ok {
		return nil, fmt.Errorf("$type %s cannot be written in tagged form", kindName)
	}
	return s.CoerceElement(raw, Property{Name: "$value", Type: t})
}

func toInt64(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) >= 1<<63 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func toFloat64(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	if i, ok := toInt64(raw); ok {
		return float64(i), true
	}
	return 0, false
}

func decimalText(raw any) (string, bool) {
	switch n := raw.(type) {
	case string:
		return n, true
	case json.Number:
		return n.String(), true
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	if i, ok := toInt64(raw); ok {
		return strconv.FormatInt(i, 10), true
	}
	return "", false
}
