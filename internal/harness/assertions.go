package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Field    string // Expectation that failed: predicate, args, results or error
	Expected string
	Actual   string
	Diff     string // Inline diff of Expected and Actual, if useful
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s mismatch\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual:   %s", e.Actual)
	if e.Diff != "" {
		fmt.Fprintf(&buf, "\n  Diff:     %s", e.Diff)
	}
	return buf.String()
}

// assertPredicate compares compiled format strings exactly.
func assertPredicate(want, got string) error {
	if want == got {
		return nil
	}
	return &AssertionError{
		Field:    "predicate",
		Expected: want,
		Actual:   got,
		Diff:     InlineDiff(want, got),
	}
}

func assertArgs(want, got []string) error {
	if slices.Equal(want, got) {
		return nil
	}
	w, g := formatList(want), formatList(got)
	return &AssertionError{
		Field:    "args",
		Expected: w,
		Actual:   g,
		Diff:     InlineDiff(w, g),
	}
}

// assertResults compares ids in order.
func assertResults(want, got []string) error {
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Field:    "results",
		Expected: formatList(want),
		Actual:   formatList(got),
	}
}

// assertError checks that err occurred and mentions want.
func assertError(want string, err error) error {
	if err == nil {
		return &AssertionError{
			Field:    "error",
			Expected: fmt.Sprintf("error containing %q", want),
			Actual:   "no error",
		}
	}
	if !strings.Contains(err.Error(), want) {
		return &AssertionError{
			Field:    "error",
			Expected: fmt.Sprintf("error containing %q", want),
			Actual:   err.Error(),
		}
	}
	return nil
}

// InlineDiff renders the character diff from want to got: deleted text in
// [-...-] and inserted text in {+...+}.
func InlineDiff(want, got string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(want, got, false))

	var buf strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			buf.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			buf.WriteString("{+" + d.Text + "+}")
		default:
			buf.WriteString(d.Text)
		}
	}
	return buf.String()
}

func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}
