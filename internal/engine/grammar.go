package engine

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// predicateLexer tokenizes predicate format strings.
var predicateLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Placeholder", Pattern: `%@`},
	{Name: "Var", Pattern: `\$[A-Za-z_][A-Za-z0-9_]*`},

	// String options must come before the "[" of a subscript.
	{Name: "Options", Pattern: `\[(?:cd|dc|c|d)\]`},
	{Name: "Agg", Pattern: `@[A-Za-z]+`},

	// Literals
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},

	{Name: "Keyword", Pattern: `(?i:\b(?:AND|OR|NOT|ANY|SOME|ALL|NONE|IN|BETWEEN|BEGINSWITH|ENDSWITH|CONTAINS|LIKE|SUBQUERY|TRUEPREDICATE|FALSEPREDICATE|NIL|NULL|TRUE|FALSE)\b)`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},

	{Name: "Op", Pattern: `==|!=|<>|<=|=<|>=|=>|&&|\|\||[=<>!]`},
	{Name: "Punct", Pattern: `[(){}\[\],.]`},
})

type orExpr struct {
	Terms []*andExpr `@@ ( ( "||" | "OR" ) @@ )*`
}

type andExpr struct {
	Terms []*unaryExpr `@@ ( ( "&&" | "AND" ) @@ )*`
}

type unaryExpr struct {
	Not     *unaryExpr   `  ( "NOT" | "!" ) @@`
	Primary *primaryExpr `| @@`
}

type primaryExpr struct {
	Group *orExpr         `  "(" @@ ")"`
	Const string          `| @( "TRUEPREDICATE" | "FALSEPREDICATE" )`
	Test  *comparisonExpr `| @@`
}

type comparisonExpr struct {
	Pos     lexer.Position
	Left    *operandExpr `@@`
	Op      string       `@( "==" | "=" | "!=" | "<>" | "<=" | "=<" | ">=" | "=>" | "<" | ">" | "IN" | "BETWEEN" | "BEGINSWITH" | "ENDSWITH" | "CONTAINS" | "LIKE" )`
	Options string       `@Options?`
	Right   *operandExpr `@@`
}

type operandExpr struct {
	Subquery    *subqueryExpr `  @@`
	Placeholder bool          `| @Placeholder`
	List        *listExpr     `| @@`
	Number      *string       `| @Number`
	String      *string       `| @String`
	Const       *string       `| @( "NIL" | "NULL" | "TRUE" | "FALSE" )`
	Path        *pathExpr     `| @@`
}

type listExpr struct {
	Items []*operandExpr `"{" ( @@ ( "," @@ )* )? "}"`
}

type subqueryExpr struct {
	Pos        lexer.Position
	Collection *pathExpr `"SUBQUERY" "(" @@ ","`
	Var        string    `@Var ","`
	Where      *orExpr   `@@ ")"`
	Agg        string    `"." @Agg`
}

type pathExpr struct {
	Pos   lexer.Position
	Quant string      `@( "ANY" | "SOME" | "ALL" | "NONE" )?`
	Head  string      `@( Var | Ident )`
	Steps []*stepExpr `@@*`
}

type stepExpr struct {
	Field     string         `  "." @( Ident | Agg | Keyword )`
	Subscript *subscriptExpr `| "[" @@ "]"`
}

type subscriptExpr struct {
	Placeholder bool    `  @Placeholder`
	String      *string `| @String`
}

var predicateParser = participle.MustBuild[orExpr](
	participle.Lexer(predicateLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.CaseInsensitive("Keyword"),
	participle.UseLookahead(2),
)
