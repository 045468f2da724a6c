package query

import (
	"errors"
	"fmt"

	"github.com/roach88/tsq/internal/schema"
)

// TypeMismatchError reports a literal operand whose tag is incompatible
// with the leaf type of the path it is compared against.
type TypeMismatchError struct {
	// Path is the rendered property path.
	Path string

	// Op is the operator being built.
	Op Operator

	// Want describes the leaf type, e.g. "int" or "object Dog".
	Want string

	// Got describes the operand, e.g. "string \"x\"".
	Got string
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("TYPE_MISMATCH: %s %s: cannot use %s as %s", e.Path, e.Op, e.Got, e.Want)
}

// UnsupportedOperatorError reports an operator/type/negation/option
// combination the query engine does not accept.
type UnsupportedOperatorError struct {
	// Code identifies the rule that was violated.
	Code UnsupportedCode

	// Op is the offending operator (zero for compound nodes).
	Op Operator

	// Path is the rendered property path, if any.
	Path string

	// Type is the leaf type the operator was applied to.
	Type schema.Type

	// Message is a human-readable description.
	Message string
}

// UnsupportedCode categorizes validation failures.
type UnsupportedCode string

const (
	// ErrCodeNegation indicates NOT over something other than IN or CONTAINS.
	ErrCodeNegation UnsupportedCode = "UNSUPPORTED_NEGATION"

	// ErrCodeUnordered indicates an ordering or range operator on an unordered type.
	ErrCodeUnordered UnsupportedCode = "UNORDERED_TYPE"

	// ErrCodeNotSearchable indicates a search operator on a non-string, non-binary type.
	ErrCodeNotSearchable UnsupportedCode = "NOT_SEARCHABLE"

	// ErrCodeOptions indicates string options on an operator that ignores them.
	ErrCodeOptions UnsupportedCode = "OPTIONS_NOT_ALLOWED"

	// ErrCodeMembership indicates membership against a non-collection.
	ErrCodeMembership UnsupportedCode = "NOT_COLLECTION"

	// ErrCodeColumn indicates an unsupported column-to-column comparison.
	ErrCodeColumn UnsupportedCode = "COLUMN_COMPARISON"

	// ErrCodeSubquery indicates a malformed subquery.
	ErrCodeSubquery UnsupportedCode = "INVALID_SUBQUERY"

	// ErrCodeArity indicates the wrong number of operands.
	ErrCodeArity UnsupportedCode = "ARITY"

	// ErrCodeUnknownOperator indicates an operator outside the closed set.
	ErrCodeUnknownOperator UnsupportedCode = "UNKNOWN_OPERATOR"
)

// Error implements the error interface.
func (e *UnsupportedOperatorError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (op=%s, path=%s, type=%s)", e.Code, e.Message, e.Op, e.Path, e.Type)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTypeMismatchError returns true if err is or wraps a TypeMismatchError.
func IsTypeMismatchError(err error) bool {
	var te *TypeMismatchError
	return errors.As(err, &te)
}

// IsUnsupportedOperatorError returns true if err is or wraps an
// UnsupportedOperatorError.
func IsUnsupportedOperatorError(err error) bool {
	var ue *UnsupportedOperatorError
	return errors.As(err, &ue)
}

// IsNegationError returns true if err reports an unsupported negation.
func IsNegationError(err error) bool {
	var ue *UnsupportedOperatorError
	if errors.As(err, &ue) {
		return ue.Code == ErrCodeNegation
	}
	return false
}
