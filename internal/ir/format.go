package ir

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParseUUID parses the canonical textual form of a UUID.
func ParseUUID(s string) (UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, fmt.Errorf("invalid uuid %q: %w", s, err)
	}
	return UUID(u), nil
}

func uuidString(u UUID) string {
	return uuid.UUID(u).String()
}

func (u UUID) String() string { return uuidString(u) }

// Format renders v for humans: CLI output, logs and test failure messages.
// It is not an encoding and is never parsed back.
func Format(v Value) string {
	var sb strings.Builder
	format(&sb, v)
	return sb.String()
}

func format(sb *strings.Builder, v Value) {
	switch val := v.(type) {
	case nil, Null:
		sb.WriteString("null")
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(val)))
	case Int:
		sb.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		sb.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 32))
	case Double:
		sb.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 64))
	case String:
		sb.WriteString(strconv.Quote(string(val)))
	case Binary:
		sb.WriteString("<")
		sb.WriteString(hex.EncodeToString(val))
		sb.WriteString(">")
	case Date:
		sb.WriteString(val.Time().UTC().Format(time.RFC3339Nano))
	case Decimal:
		sb.WriteString(val.String())
	case UUID:
		sb.WriteString(val.String())
	case Enum:
		sb.WriteString(val.Type)
		sb.WriteByte('(')
		format(sb, val.Raw)
		sb.WriteByte(')')
	case ObjectRef:
		sb.WriteString(val.Type)
		sb.WriteByte('/')
		sb.WriteString(val.ID)
	case Embedded:
		sb.WriteString(val.Type)
		sb.WriteByte('{')
		for i, f := range val.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			format(sb, f.Value)
		}
		sb.WriteByte('}')
	case List:
		sb.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, elem)
		}
		sb.WriteByte(']')
	case Map:
		sb.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(": ")
			format(sb, val[k])
		}
		sb.WriteByte('}')
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}
