package schema

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/tsq/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrUnknownObjectType   = "E101" // objectType names no declared object
	ErrUnknownEnum         = "E102" // enum names no declared enum
	ErrPrimaryKeyMissing   = "E103" // primaryKey names no property
	ErrPrimaryKeyType      = "E104" // primary key must be int, string or uuid
	ErrEmbeddedPrimaryKey  = "E105" // embedded objects have no identity
	ErrDuplicateProperty   = "E106" // property declared twice
	ErrStrayObjectType     = "E107" // objectType on a non-object property
	ErrEnumRawType         = "E108" // enum raw type must be int or string
	ErrEnumCaseType        = "E109" // enum case does not match raw type
	ErrLinkNotOptional     = "E110" // to-one links must be optional
	ErrNoProperties        = "E111" // object declares no properties
	ErrEmbeddedSet         = "E112" // sets cannot hold embedded objects
	ErrInvalidPropertyType = "E113" // property type is missing or unknown
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a schema for internal consistency.
// Returns all errors found (does not fail-fast), objects in declaration order.
func Validate(s *Schema) []ValidationError {
	var errs []ValidationError

	for _, name := range s.order {
		errs = append(errs, validateObject(s, s.Objects[name])...)
	}
	for _, name := range sortedEnumNames(s) {
		errs = append(errs, validateEnum(s.Enums[name])...)
	}
	return errs
}

func validateObject(s *Schema, o *Object) []ValidationError {
	var errs []ValidationError
	field := func(p string) string { return o.Name + "." + p }

	// E111: at least one property
	if len(o.Properties) == 0 {
		errs = append(errs, ValidationError{
			Field:   o.Name,
			Message: "object must declare at least one property",
			Code:    ErrNoProperties,
		})
	}

	seen := make(map[string]bool, len(o.Properties))
	for _, p := range o.Properties {
		// E106: duplicate names
		if seen[p.Name] {
			errs = append(errs, ValidationError{
				Field:   field(p.Name),
				Message: "duplicate property name",
				Code:    ErrDuplicateProperty,
			})
		}
		seen[p.Name] = true

		if _, ok := typeNames[p.Type]; !ok {
			errs = append(errs, ValidationError{
				Field:   field(p.Name),
				Message: fmt.Sprintf("invalid property type %s", p.Type),
				Code:    ErrInvalidPropertyType,
			})
			continue
		}

		switch p.Type {
		case TypeObject:
			target, ok := s.Objects[p.ObjectType]
			if !ok {
				errs = append(errs, ValidationError{
					Field:   field(p.Name),
					Message: fmt.Sprintf("unknown object type %q", p.ObjectType),
					Code:    ErrUnknownObjectType,
				})
				continue
			}
			if p.Collection == CollectionNone && !p.Optional {
				errs = append(errs, ValidationError{
					Field:   field(p.Name),
					Message: "to-one links and embedded objects must be optional",
					Code:    ErrLinkNotOptional,
				})
			}
			if p.Collection == CollectionSet && target.Embedded {
				errs = append(errs, ValidationError{
					Field:   field(p.Name),
					Message: fmt.Sprintf("set cannot hold embedded object %s", target.Name),
					Code:    ErrEmbeddedSet,
				})
			}
		case TypeEnum:
			if _, ok := s.Enums[p.Enum]; !ok {
				errs = append(errs, ValidationError{
					Field:   field(p.Name),
					Message: fmt.Sprintf("unknown enum %q", p.Enum),
					Code:    ErrUnknownEnum,
				})
			}
		}

		if p.ObjectType != "" && p.Type != TypeObject {
			errs = append(errs, ValidationError{
				Field:   field(p.Name),
				Message: fmt.Sprintf("objectType set on %s property", p.Type),
				Code:    ErrStrayObjectType,
			})
		}
	}

	if o.PrimaryKey != "" {
		// E105: embedded objects cannot have a primary key
		if o.Embedded {
			errs = append(errs, ValidationError{
				Field:   o.Name,
				Message: "embedded objects cannot declare a primary key",
				Code:    ErrEmbeddedPrimaryKey,
			})
		}
		pk, ok := o.Property(o.PrimaryKey)
		switch {
		case !ok:
			errs = append(errs, ValidationError{
				Field:   o.Name,
				Message: fmt.Sprintf("primary key %q is not a declared property", o.PrimaryKey),
				Code:    ErrPrimaryKeyMissing,
			})
		case pk.IsCollection() || (pk.Type != TypeInt && pk.Type != TypeString && pk.Type != TypeUUID):
			errs = append(errs, ValidationError{
				Field:   field(pk.Name),
				Message: "primary key must be a scalar int, string or uuid",
				Code:    ErrPrimaryKeyType,
			})
		}
	}

	return errs
}

func validateEnum(e *Enum) []ValidationError {
	var errs []ValidationError

	if e.Raw != TypeInt && e.Raw != TypeString {
		return append(errs, ValidationError{
			Field:   e.Name,
			Message: fmt.Sprintf("enum raw type must be int or string, got %s", e.Raw),
			Code:    ErrEnumRawType,
		})
	}

	for i, c := range e.Cases {
		ok := false
		switch c.(type) {
		case ir.Int:
			ok = e.Raw == TypeInt
		case ir.String:
			ok = e.Raw == TypeString
		}
		if !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.cases[%d]", e.Name, i),
				Message: fmt.Sprintf("case %s does not match raw type %s", ir.Format(c), e.Raw),
				Code:    ErrEnumCaseType,
			})
		}
	}
	return errs
}

func sortedEnumNames(s *Schema) []string {
	return slices.Sorted(maps.Keys(s.Enums))
}
