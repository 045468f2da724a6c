package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxSteps is the step limit used when no WithMaxSteps option is
// given.
const DefaultMaxSteps = 1_000_000

// QuotaEnforcer counts the comparisons one execution evaluates and enforces
// a maximum.
//
// A step is one comparison test, including each test evaluated inside a
// SUBQUERY for each element of its collection, so nested subqueries over
// large collections are cut off instead of running unbounded.
type QuotaEnforcer struct {
	maxSteps int // Maximum allowed steps; <= 0 means unlimited
	current  int
}

// NewQuotaEnforcer creates a quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates it against the limit.
//
// Returns StepsExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check(root string) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			Root:  root,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Reset resets the step counter to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current step count.
// Used for logging.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when an execution exceeds its step quota.
// The execution stops and returns no ids.
type StepsExceededError struct {
	Root  string // Root type being queried
	Steps int    // Number of steps taken
	Limit int    // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("query over %s exceeded max steps quota: %d steps > %d limit",
		e.Root, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
