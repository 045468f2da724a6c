// Package harness runs conformance scenarios for the predicate compiler and
// the engine that executes its output.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: adults
//	description: "Half-open age range"
//	schema: ../schema/people.cue
//	objects:
//	  - type: Person
//	    fields: {name: Ann, age: 10}
//	  - type: Dog
//	    id: rex
//	    fields: {name: Rex, age: 3, owner: Ann}
//	queries:
//	  - name: adults
//	    root: Person
//	    where:
//	      path: age
//	      op: range
//	      values: [18, 65]
//	    expect:
//	      predicate: "(age >= %@) && (age < %@)"
//	      args: ["18", "65"]
//	      results: [Bob]
//
// where uses the query document clause format. Expected args are written
// as ir.Format renders them, so strings carry their quotes.
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory SQLite store, and objects stored without
// an id or primary key get "obj-1", "obj-2", ... in file order. The same
// scenario always produces the same snapshot, which RunWithGolden compares
// against testdata/golden.
package harness
