package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for predicate identity.
// Version suffix enables future algorithm migration.
const DomainPredicate = "tsq/predicate/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PredicateHash computes a stable identity for a compiled predicate.
// Two predicates hash equal iff their format strings and canonical
// arguments are identical.
func PredicateHash(format string, args []Value) (string, error) {
	canonical, err := MarshalCanonical(Map{
		"format": String(format),
		"args":   List(args),
	})
	if err != nil {
		return "", fmt.Errorf("PredicateHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPredicate, canonical), nil
}

// MustPredicateHash is like PredicateHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPredicateHash(format string, args []Value) string {
	h, err := PredicateHash(format, args)
	if err != nil {
		panic(err)
	}
	return h
}
