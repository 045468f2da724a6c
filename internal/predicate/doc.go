// Package predicate lowers validated query trees into the textual predicate
// format the query engine accepts: a format string with positional "%@"
// placeholders plus the ordered argument list that fills them.
//
// LOWERING:
//
// Each operator maps to a fixed template (see Lower). Templates use these
// verbs:
//
//	%p  the property path, prefixed with "ANY " when it is multi-valued
//	%b  the bare property path
//	%m  the path with @min inserted after its to-many hop
//	%M  the path with @max inserted after its to-many hop
//	%@  the next operand
//
// Option suffixes ([c], [d], [cd]) are baked into the template.
//
// CRITICAL PATTERNS:
//
// Placeholder/argument parity: arguments are appended in exactly the order
// their placeholders are written, including map subscript keys inside
// paths. Compile checks the count before returning and panics with
// *InternalInvariantError on mismatch; a mismatch is a compiler defect,
// never caller error.
//
// Minimal parentheses: sub-expressions are parenthesized only when their
// precedence is lower than their context (|| < && < NOT < test). The top
// level is never wrapped, so "age >= 18 AND age < 65" compiles to
// "age >= %@ && age < %@".
//
// Compilation is pure. A Compiler holds no per-call state and may be shared
// between goroutines.
package predicate
