package query

import (
	"fmt"
	"strings"
)

// Operator is the closed set of predicate operators.
type Operator int

const (
	OpEqual Operator = iota + 1
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpRangeHalfOpen // lo <= x < hi
	OpRangeClosed   // lo <= x <= hi
	OpIn            // membership; Reversed expressions test path IN list
	OpBeginsWith
	OpEndsWith
	OpContains // substring
	OpLike
	OpStringEqual    // == honoring StringOptions
	OpStringNotEqual // != honoring StringOptions
)

type operatorInfo struct {
	name  string // document name
	token string // query engine token
	arity int
}

var operatorTable = map[Operator]operatorInfo{
	OpEqual:          {"==", "==", 1},
	OpNotEqual:       {"!=", "!=", 1},
	OpLess:           {"<", "<", 1},
	OpLessEqual:      {"<=", "<=", 1},
	OpGreater:        {">", ">", 1},
	OpGreaterEqual:   {">=", ">=", 1},
	OpRangeHalfOpen:  {"range", "&&", 2},
	OpRangeClosed:    {"between", "BETWEEN", 2},
	OpIn:             {"in", "IN", 1},
	OpBeginsWith:     {"beginsWith", "BEGINSWITH", 1},
	OpEndsWith:       {"endsWith", "ENDSWITH", 1},
	OpContains:       {"contains", "CONTAINS", 1},
	OpLike:           {"like", "LIKE", 1},
	OpStringEqual:    {"equalFold", "==", 1},
	OpStringNotEqual: {"notEqualFold", "!=", 1},
}

func (op Operator) String() string {
	if info, ok := operatorTable[op]; ok {
		return info.name
	}
	return fmt.Sprintf("operator(%d)", int(op))
}

// Token is the query engine token for op. Half-open ranges lower to a pair
// of comparisons joined by "&&".
func (op Operator) Token() string {
	return operatorTable[op].token
}

// Arity is the number of literal operands op binds.
func (op Operator) Arity() int {
	return operatorTable[op].arity
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	_, ok := operatorTable[op]
	return ok
}

// IsComparison reports whether op is one of == != < <= > >=.
func (op Operator) IsComparison() bool {
	return op >= OpEqual && op <= OpGreaterEqual
}

// IsOrdering reports whether op is one of < <= > >=.
func (op Operator) IsOrdering() bool {
	return op >= OpLess && op <= OpGreaterEqual
}

// IsRange reports whether op is a range containment test.
func (op Operator) IsRange() bool {
	return op == OpRangeHalfOpen || op == OpRangeClosed
}

// IsSearch reports whether op is a string/binary search operator.
func (op Operator) IsSearch() bool {
	switch op {
	case OpBeginsWith, OpEndsWith, OpContains, OpLike:
		return true
	}
	return false
}

// AcceptsOptions reports whether StringOptions may be attached to op.
func (op Operator) AcceptsOptions() bool {
	return op.IsSearch() || op == OpStringEqual || op == OpStringNotEqual
}

// Negatable reports whether NOT may be applied to an expression using op.
// The query engine only accepts NOT before membership and CONTAINS.
func (op Operator) Negatable() bool {
	return op == OpIn || op == OpContains
}

// ParseOperator maps a document operator name to its Operator. The names
// are those returned by String; "=" and "eq" style aliases are not accepted.
func ParseOperator(name string) (Operator, bool) {
	for op, info := range operatorTable {
		if info.name == name {
			return op, true
		}
	}
	return 0, false
}

// StringOptions modifies string comparison.
type StringOptions uint8

const (
	CaseInsensitive StringOptions = 1 << iota
	DiacriticInsensitive
)

// Suffix renders the options as the query engine expects: "", "[c]", "[d]"
// or "[cd]". Case always precedes diacritic.
func (o StringOptions) Suffix() string {
	switch o & (CaseInsensitive | DiacriticInsensitive) {
	case CaseInsensitive:
		return "[c]"
	case DiacriticInsensitive:
		return "[d]"
	case CaseInsensitive | DiacriticInsensitive:
		return "[cd]"
	}
	return ""
}

func (o StringOptions) String() string {
	return o.Suffix()
}

// ParseOptions reads options written as "c", "d", "cd", "dc", optionally
// bracketed.
func ParseOptions(s string) (StringOptions, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	var o StringOptions
	for _, r := range s {
		switch r {
		case 'c':
			o |= CaseInsensitive
		case 'd':
			o |= DiacriticInsensitive
		default:
			return 0, fmt.Errorf("unknown string option %q", r)
		}
	}
	return o, nil
}
