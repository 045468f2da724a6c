package predicate

import (
	"errors"
	"fmt"
	"strings"
)

// InternalInvariantError reports a compiled predicate whose placeholder
// count differs from its argument count. It indicates a compiler defect and
// is raised with panic, never returned.
type InternalInvariantError struct {
	Format       string
	Placeholders int
	Args         int
}

func (e *InternalInvariantError) Error() string {
	return fmt.Sprintf("INTERNAL_INVARIANT: %d placeholders but %d arguments in %q", e.Placeholders, e.Args, e.Format)
}

// IsInternalInvariantError returns true if err is or wraps an
// InternalInvariantError. Useful when recovering from a compile panic.
func IsInternalInvariantError(err error) bool {
	var ie *InternalInvariantError
	return errors.As(err, &ie)
}

// checkParity panics unless p has exactly one argument per placeholder.
func checkParity(p CompiledPredicate) {
	if n := strings.Count(p.Format, Placeholder); n != len(p.Args) {
		panic(&InternalInvariantError{Format: p.Format, Placeholders: n, Args: len(p.Args)})
	}
}
