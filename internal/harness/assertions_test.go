package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertPredicate(t *testing.T) {
	require.NoError(t, assertPredicate("age > %@", "age > %@"))

	err := assertPredicate("age > %@", "age >= %@")
	require.Error(t, err)

	var aerr *AssertionError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "predicate", aerr.Field)
	assert.Equal(t, "age >{+=+} %@", aerr.Diff)
	assert.Contains(t, err.Error(), "predicate mismatch")
	assert.Contains(t, err.Error(), "Diff:")
}

func TestAssertArgs(t *testing.T) {
	require.NoError(t, assertArgs([]string{"18", `"x"`}, []string{"18", `"x"`}))

	err := assertArgs([]string{"18"}, []string{"19"})
	require.Error(t, err)

	var aerr *AssertionError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "[18]", aerr.Expected)
	assert.Equal(t, "[19]", aerr.Actual)
}

func TestAssertResults(t *testing.T) {
	tests := []struct {
		name string
		want []string
		got  []string
		ok   bool
	}{
		{"equal", []string{"a", "b"}, []string{"a", "b"}, true},
		{"both empty", []string{}, []string{}, true},
		{"order matters", []string{"a", "b"}, []string{"b", "a"}, false},
		{"missing", []string{"a", "b"}, []string{"a"}, false},
		{"expected none", []string{}, []string{"a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertResults(tt.want, tt.got)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAssertError(t *testing.T) {
	assert.NoError(t, assertError("ordered", errors.New("UNORDERED_TYPE: > requires an ordered type")))

	err := assertError("ordered", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no error")

	err = assertError("ordered", errors.New("something else"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "something else")
}

func TestInlineDiff(t *testing.T) {
	tests := []struct {
		name string
		want string
		got  string
		diff string
	}{
		{"identical", "a == %@", "a == %@", "a == %@"},
		{"insert", "a == %@", "a ==[c] %@", "a =={+[c]+} %@"},
		{"delete", "ANY a == %@", "a == %@", "[-ANY -]a == %@"},
		{"replace", "x", "y", "[-x-]{+y+}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.diff, InlineDiff(tt.want, tt.got))
		})
	}
}
