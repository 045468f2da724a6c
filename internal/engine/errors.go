package engine

import (
	"errors"
	"fmt"
)

// ParseError reports a predicate format string the engine cannot parse, or
// whose placeholders do not match the supplied arguments.
type ParseError struct {
	// Code identifies the error category.
	Code ParseErrorCode

	// Format is the predicate format string.
	Format string

	// Offset is the byte offset of the offending token, or -1.
	Offset int

	// Message is a human-readable description.
	Message string
}

// ParseErrorCode categorizes parse errors.
type ParseErrorCode string

const (
	// ErrCodeSyntax indicates the format string does not follow the grammar.
	ErrCodeSyntax ParseErrorCode = "SYNTAX"

	// ErrCodeArgCount indicates the placeholder count differs from the
	// argument count.
	ErrCodeArgCount ParseErrorCode = "ARG_COUNT"
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: %s at offset %d in %q", e.Code, e.Message, e.Offset, e.Format)
	}
	return fmt.Sprintf("%s: %s in %q", e.Code, e.Message, e.Format)
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// EvalError reports a predicate that parsed but cannot be evaluated against
// an object.
type EvalError struct {
	// Code identifies the error category.
	Code EvalErrorCode

	// Message is a human-readable description.
	Message string

	// ObjectID identifies the object being evaluated, when known.
	ObjectID string
}

// EvalErrorCode categorizes evaluation errors.
type EvalErrorCode string

const (
	// ErrCodeUnknownProperty indicates a path names a property the object
	// does not have.
	ErrCodeUnknownProperty EvalErrorCode = "UNKNOWN_PROPERTY"

	// ErrCodeUnboundVariable indicates a $variable used outside its
	// SUBQUERY.
	ErrCodeUnboundVariable EvalErrorCode = "UNBOUND_VARIABLE"

	// ErrCodeBadAggregate indicates an aggregate applied to values it cannot
	// combine, such as @sum over strings.
	ErrCodeBadAggregate EvalErrorCode = "BAD_AGGREGATE"

	// ErrCodeBadOperand indicates an operand of the wrong shape, such as a
	// BETWEEN bound that is not a two-element list.
	ErrCodeBadOperand EvalErrorCode = "BAD_OPERAND"
)

// Error implements the error interface.
func (e *EvalError) Error() string {
	if e.ObjectID != "" {
		return fmt.Sprintf("%s: %s (object=%s)", e.Code, e.Message, e.ObjectID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsEvalError reports whether err is or wraps an EvalError.
func IsEvalError(err error) bool {
	var ee *EvalError
	return errors.As(err, &ee)
}

func evalErrorf(code EvalErrorCode, format string, args ...any) *EvalError {
	return &EvalError{Code: code, Message: fmt.Sprintf(format, args...)}
}
