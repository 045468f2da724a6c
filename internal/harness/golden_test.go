package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_People(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/people.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "failures: %v", result.Failures())
}

func TestSnapshot_Marshal(t *testing.T) {
	result := NewResult("tiny")
	result.Add(QueryResult{Name: "one", Pass: true, Predicate: "age > %@", Args: []string{"3"}, Results: []string{"a", "b"}})
	result.Add(QueryResult{Name: "none", Pass: true, Predicate: "TRUEPREDICATE", Results: []string{}})
	result.Add(QueryResult{Name: "bad", Pass: true, Error: "boom", Results: []string{}})

	data, err := NewSnapshot(result).Marshal()
	require.NoError(t, err)
	assert.Equal(t, `scenario: tiny

query: one
  predicate: age > %@
  args: 3
  results: a, b

query: none
  predicate: TRUEPREDICATE
  results: -

query: bad
  error: boom
`, string(data))
}
