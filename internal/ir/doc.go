// Package ir provides the closed set of operand values that flow through the
// predicate compiler.
//
// This package contains value definitions and their encodings only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is sealed; every variant is listed in value.go
//   - List and Map only appear under the dynamic "any" type or as collection contents
//   - Nesting is bounded by MaxDepth
//   - Hashing uses the canonical encoding only (NFC strings, RFC 8785 key order)
package ir
