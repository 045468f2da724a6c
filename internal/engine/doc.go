// Package engine is the reference query engine for compiled predicates.
//
// It parses the predicate grammar the compiler emits, binds the positional
// arguments to its %@ placeholders, and evaluates the result against
// objects read from a Source. The store package provides the SQLite-backed
// Source; MemorySource serves tests.
//
// GRAMMAR:
//
//	predicate  := or
//	or         := and (("||" | OR) and)*
//	and        := unary (("&&" | AND) unary)*
//	unary      := (NOT | "!") unary | "(" or ")" | TRUEPREDICATE | FALSEPREDICATE | comparison
//	comparison := operand op [options] operand
//	op         := == = != <> < <= =< > >= => IN BETWEEN BEGINSWITH ENDSWITH CONTAINS LIKE
//	operand    := SUBQUERY "(" path "," $var "," or ")" ".@count"
//	            | %@ | "{" operand, ... "}" | number | string | NIL | TRUE | FALSE
//	            | [ANY | SOME | ALL | NONE] path
//	path       := (name | $var) ("." name | "." @aggregate | "[" (%@ | string) "]")*
//
// Keywords are case-insensitive.
//
// SEMANTICS:
//
// A path that crosses a collection yields one value per element; a
// comparison over several values is existential unless ALL or NONE is
// given. Traversing a null link yields no value, so the comparison fails
// for that object. An aggregate collapses the nearest collection before it:
// "dogs.toys.@count" counts each dog's toys separately, while
// "dogs.@min.age" takes the minimum age over all dogs. Over an empty
// collection @count and @sum are 0 and @min, @max and @avg are null.
//
// Numbers of different kinds compare by value through apd. [c] folds case
// with Unicode case folding; [d] strips combining marks after NFD
// decomposition. LIKE accepts * and ? wildcards.
//
// Evaluation never mutates the Source. An Engine is safe for concurrent use
// when its Source is.
package engine
