package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicateHashDeterminism(t *testing.T) {
	args := []Value{Int(18), Int(65)}

	h1, err := PredicateHash("age >= %@ && age < %@", args)
	require.NoError(t, err)
	h2, err := PredicateHash("age >= %@ && age < %@", args)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "PredicateHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestPredicateHashChangesWithInput(t *testing.T) {
	base := MustPredicateHash("age >= %@", []Value{Int(18)})

	assert.NotEqual(t, base, MustPredicateHash("age > %@", []Value{Int(18)}), "format participates")
	assert.NotEqual(t, base, MustPredicateHash("age >= %@", []Value{Int(19)}), "args participate")
	assert.NotEqual(t, base, MustPredicateHash("age >= %@", []Value{Double(18)}), "arg kind participates")
}

func TestPredicateHashNFCStable(t *testing.T) {
	a := MustPredicateHash("name == %@", []Value{String("e\u0301")})
	b := MustPredicateHash("name == %@", []Value{String("\u00e9")})
	assert.Equal(t, a, b)
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t, hashWithDomain("tsq/a/v1", data), hashWithDomain("tsq/b/v1", data))
}
