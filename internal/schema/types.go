// Package schema describes the persisted object model that predicates are
// compiled against: object types, their ordered properties, and enums.
//
// A Schema is built once (in code with New, or from CUE with Load) and is
// read-only afterwards. It is passed explicitly to every consumer and may be
// shared across goroutines without synchronization.
package schema

import (
	"fmt"
	"slices"

	"github.com/roach88/tsq/internal/ir"
)

// Type is the semantic type of a property or of a collection's elements.
type Type int

const (
	TypeBool Type = iota + 1
	TypeInt
	TypeFloat
	TypeDouble
	TypeString
	TypeBinary
	TypeDate
	TypeDecimal
	TypeUUID
	TypeObject // link to a top-level object or an embedded object
	TypeMixed  // the dynamic "any" type
	TypeEnum
)

var typeNames = map[Type]string{
	TypeBool:    "bool",
	TypeInt:     "int",
	TypeFloat:   "float",
	TypeDouble:  "double",
	TypeString:  "string",
	TypeBinary:  "binary",
	TypeDate:    "date",
	TypeDecimal: "decimal",
	TypeUUID:    "uuid",
	TypeObject:  "object",
	TypeMixed:   "mixed",
	TypeEnum:    "enum",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType maps a type name to its Type. "any" is accepted as an alias of
// "mixed".
func ParseType(name string) (Type, bool) {
	if name == "any" {
		return TypeMixed, true
	}
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Numeric reports whether values of t support @sum and @avg.
func (t Type) Numeric() bool {
	switch t {
	case TypeInt, TypeFloat, TypeDouble, TypeDecimal:
		return true
	}
	return false
}

// Ordered reports whether t supports <, <=, >, >= and ranges. Mixed is
// ordered only against ordering-comparable operands, which callers check
// separately.
func (t Type) Ordered() bool {
	return t.Numeric() || t == TypeDate
}

// Searchable reports whether t supports BEGINSWITH, ENDSWITH, CONTAINS and LIKE.
func (t Type) Searchable() bool {
	return t == TypeString || t == TypeBinary
}

// CollectionKind distinguishes scalar properties from lists, sets and maps.
type CollectionKind int

const (
	CollectionNone CollectionKind = iota
	CollectionList
	CollectionSet
	CollectionMap
)

func (c CollectionKind) String() string {
	switch c {
	case CollectionList:
		return "list"
	case CollectionSet:
		return "set"
	case CollectionMap:
		return "map"
	default:
		return "none"
	}
}

// ParseCollection maps a collection name ("", "list", "set", "map") to its kind.
func ParseCollection(name string) (CollectionKind, bool) {
	switch name {
	case "", "none":
		return CollectionNone, true
	case "list":
		return CollectionList, true
	case "set":
		return CollectionSet, true
	case "map":
		return CollectionMap, true
	}
	return 0, false
}

// Property is one persisted property of an object type. For collections,
// Type describes the elements (map values for maps; map keys are strings).
type Property struct {
	Name       string
	Type       Type
	ObjectType string // target type when Type is TypeObject
	Enum       string // enum name when Type is TypeEnum
	Collection CollectionKind
	Optional   bool // the property (or each element) may be null
}

// IsCollection reports whether the property is a list, set or map.
func (p Property) IsCollection() bool {
	return p.Collection != CollectionNone
}

// Object is a persisted object type. Properties keep declaration order,
// which is also the order embedded snapshots are expanded in.
type Object struct {
	Name       string
	Embedded   bool
	PrimaryKey string
	Properties []Property
}

// Property looks up a property by name.
func (o *Object) Property(name string) (Property, bool) {
	for _, p := range o.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Enum is a named enumeration whose cases are compared by raw value.
type Enum struct {
	Name  string
	Raw   Type // TypeInt or TypeString
	Cases []ir.Value
}

// HasCase reports whether raw is one of the enum's raw values.
func (e *Enum) HasCase(raw ir.Value) bool {
	return slices.ContainsFunc(e.Cases, func(c ir.Value) bool { return ir.Equal(c, raw) })
}

// Schema is the complete, read-only object model.
type Schema struct {
	Objects map[string]*Object
	Enums   map[string]*Enum
	order   []string
}

// New builds a schema from object definitions. It does not validate; call
// Validate (or Must) for that.
func New(objects ...*Object) *Schema {
	s := &Schema{
		Objects: make(map[string]*Object, len(objects)),
		Enums:   make(map[string]*Enum),
	}
	for _, o := range objects {
		if _, dup := s.Objects[o.Name]; !dup {
			s.order = append(s.order, o.Name)
		}
		s.Objects[o.Name] = o
	}
	return s
}

// WithEnums registers enums and returns the schema for chaining.
func (s *Schema) WithEnums(enums ...*Enum) *Schema {
	for _, e := range enums {
		s.Enums[e.Name] = e
	}
	return s
}

// Must validates s and panics on the first validation error.
// Use only in tests or for schemas defined in code:
//
//	s := schema.Must(schema.New(person, dog).WithEnums(mood))
func Must(s *Schema) *Schema {
	if errs := Validate(s); len(errs) > 0 {
		panic(fmt.Sprintf("invalid schema: %v", errs[0]))
	}
	return s
}

// Object looks up an object type by name.
func (s *Schema) Object(name string) (*Object, bool) {
	o, ok := s.Objects[name]
	return o, ok
}

// Enum looks up an enum by name.
func (s *Schema) Enum(name string) (*Enum, bool) {
	e, ok := s.Enums[name]
	return e, ok
}

// ObjectNames returns object type names in declaration order.
func (s *Schema) ObjectNames() []string {
	return slices.Clone(s.order)
}
