package keypath

import (
	"errors"
	"fmt"
)

// PathResolutionError reports an accessor chain that does not describe a
// valid property path on the schema. It is raised while the path is built,
// before any operator is applied.
type PathResolutionError struct {
	// Code identifies the error category.
	Code PathErrorCode

	// Root is the object type resolution started from.
	Root string

	// Path is the portion of the chain resolved so far, including the
	// offending accessor.
	Path string

	// Message is a human-readable description.
	Message string
}

// PathErrorCode categorizes path resolution errors.
type PathErrorCode string

const (
	// ErrCodeUnknownType indicates the root type is not in the schema.
	ErrCodeUnknownType PathErrorCode = "UNKNOWN_TYPE"

	// ErrCodeUnknownProperty indicates an accessor names no declared property.
	ErrCodeUnknownProperty PathErrorCode = "UNKNOWN_PROPERTY"

	// ErrCodeNotCollection indicates an aggregate on a non-collection path.
	ErrCodeNotCollection PathErrorCode = "NOT_COLLECTION"

	// ErrCodeNotObject indicates a field accessor after a scalar leaf.
	ErrCodeNotObject PathErrorCode = "NOT_OBJECT"

	// ErrCodeNotMap indicates a key or map aggregate on a non-map path.
	ErrCodeNotMap PathErrorCode = "NOT_MAP"

	// ErrCodeAggregateType indicates an aggregate over an unsupported element type.
	ErrCodeAggregateType PathErrorCode = "AGGREGATE_TYPE"

	// ErrCodeTerminated indicates an accessor after a terminal aggregate.
	ErrCodeTerminated PathErrorCode = "TERMINATED"

	// ErrCodeSyntax indicates a malformed textual path.
	ErrCodeSyntax PathErrorCode = "SYNTAX"
)

// Error implements the error interface.
func (e *PathResolutionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (root=%s, path=%s)", e.Code, e.Message, e.Root, e.Path)
	}
	return fmt.Sprintf("%s: %s (root=%s)", e.Code, e.Message, e.Root)
}

// IsPathResolutionError returns true if err is or wraps a PathResolutionError.
func IsPathResolutionError(err error) bool {
	var pe *PathResolutionError
	return errors.As(err, &pe)
}

// ErrorCode returns the PathErrorCode carried by err, or "" if err is not a
// path resolution error.
func ErrorCode(err error) PathErrorCode {
	var pe *PathResolutionError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
