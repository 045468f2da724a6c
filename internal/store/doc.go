// Package store persists objects in SQLite and serves them to the query
// engine.
//
// Every object lives in a single objects table keyed by (type, id). The
// body column holds the object's fields in the tagged JSON encoding from
// package ir, so a stored object round-trips without the schema.
//
// # Ordering
//
// seq is assigned on first insert and kept when an object is replaced.
// All reads ORDER BY seq ASC, so query results follow insertion order and
// are identical across runs over the same data.
//
// # Identity
//
// An object stored without an id gets the text of its primary-key value
// when the store knows a schema that declares one, and a UUIDv7 otherwise.
// Links between objects resolve through the same id.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
