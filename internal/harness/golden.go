package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tsq/internal/predicate"
)

// Snapshot is the golden-file form of a scenario run: what every query
// compiled to and matched.
type Snapshot struct {
	Scenario string
	Queries  []QuerySnapshot
}

// QuerySnapshot is one query in a Snapshot.
type QuerySnapshot struct {
	Name      string
	Predicate string
	Args      []string
	Results   []string
	Error     string
}

// NewSnapshot captures r.
func NewSnapshot(r *Result) Snapshot {
	s := Snapshot{Scenario: r.Name, Queries: make([]QuerySnapshot, len(r.Queries))}
	for i, q := range r.Queries {
		s.Queries[i] = QuerySnapshot{
			Name:      q.Name,
			Predicate: q.Predicate,
			Args:      q.Args,
			Results:   q.Results,
			Error:     q.Error,
		}
	}
	return s
}

// Marshal renders the snapshot as line-oriented text:
//
//	scenario: people
//
//	query: adults
//	  predicate: (age >= %@) && (age < %@)
//	  args: 18 | 65
//	  results: Bob, Cat
//
// Queries appear in scenario order and every line is deterministic for a
// given run.
func (s Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", s.Scenario)
	for _, q := range s.Queries {
		fmt.Fprintf(&buf, "\nquery: %s\n", q.Name)
		if q.Error != "" {
			fmt.Fprintf(&buf, "  error: %s\n", q.Error)
			continue
		}
		fmt.Fprintf(&buf, "  predicate: %s\n", q.Predicate)
		if len(q.Args) > 0 {
			fmt.Fprintf(&buf, "  args: %s\n", strings.Join(q.Args, " | "))
		}
		if len(q.Results) == 0 {
			buf.WriteString("  results: -\n")
			continue
		}
		fmt.Fprintf(&buf, "  results: %s\n", strings.Join(q.Results, ", "))
	}
	return buf.Bytes(), nil
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(result).Marshal()
	if err != nil {
		return err
	}
	newGoldie(t).Assert(t, name, data)
	return nil
}

// GoldenPredicate compares a compiled predicate's Describe output against
// testdata/golden/{name}.golden.
func GoldenPredicate(t *testing.T, name string, p predicate.CompiledPredicate) {
	t.Helper()
	newGoldie(t).Assert(t, name, []byte(p.Describe()))
}
