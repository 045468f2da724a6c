package ir

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Every value is encoded as a tagged JSON object so that kinds which share a
// JSON representation (int vs double, string vs uuid vs date) survive a round
// trip:
//
//	{"t":"int","v":18}
//	{"t":"enum","type":"Mood","v":{"t":"string","v":"happy"}}
//	{"id":"p1","t":"object","type":"Person"}
//
// Object keys are always written in RFC 8785 order. Floats are carried as
// strings so the encoding stays free of JSON number rounding.

// MarshalCanonical produces the canonical encoding used for hashing.
// Strings (including map keys) are NFC normalized.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, true, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalTagged produces the storage encoding. It is identical to the
// canonical encoding except that strings are stored exactly as given.
func MarshalTagged(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, false, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v Value, canonical bool, level int) error {
	if level > MaxDepth {
		return ErrTooDeep
	}
	if v == nil {
		v = Null{}
	}

	switch val := v.(type) {
	case Null:
		buf.WriteString(`{"t":"null"}`)
	case Bool:
		buf.WriteString(`{"t":"bool","v":`)
		buf.WriteString(strconv.FormatBool(bool(val)))
		buf.WriteByte('}')
	case Int:
		buf.WriteString(`{"t":"int","v":`)
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		buf.WriteByte('}')
	case Float:
		writeTaggedString(buf, "float", strconv.FormatFloat(float64(val), 'g', -1, 32), false)
	case Double:
		writeTaggedString(buf, "double", strconv.FormatFloat(float64(val), 'g', -1, 64), false)
	case String:
		writeTaggedString(buf, "string", string(val), canonical)
	case Binary:
		writeTaggedString(buf, "binary", base64.StdEncoding.EncodeToString(val), false)
	case Date:
		writeTaggedString(buf, "date", val.Time().UTC().Format(time.RFC3339Nano), false)
	case Decimal:
		writeTaggedString(buf, "decimal", val.String(), false)
	case UUID:
		writeTaggedString(buf, "uuid", uuidString(val), false)
	case Enum:
		buf.WriteString(`{"t":"enum","type":`)
		writeString(buf, val.Type, canonical)
		buf.WriteString(`,"v":`)
		if err := encodeValue(buf, val.Raw, canonical, level+1); err != nil {
			return fmt.Errorf("enum %s: %w", val.Type, err)
		}
		buf.WriteByte('}')
	case ObjectRef:
		buf.WriteString(`{"id":`)
		writeString(buf, val.ID, canonical)
		if val.PrimaryKey != nil {
			buf.WriteString(`,"pk":`)
			if err := encodeValue(buf, val.PrimaryKey, canonical, level+1); err != nil {
				return fmt.Errorf("object %s primary key: %w", val.Type, err)
			}
		}
		buf.WriteString(`,"t":"object","type":`)
		writeString(buf, val.Type, canonical)
		buf.WriteByte('}')
	case Embedded:
		buf.WriteString(`{"t":"embedded","type":`)
		writeString(buf, val.Type, canonical)
		buf.WriteString(`,"v":[`)
		for i, f := range val.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(`{"name":`)
			writeString(buf, f.Name, canonical)
			buf.WriteString(`,"v":`)
			if err := encodeValue(buf, f.Value, canonical, level+1); err != nil {
				return fmt.Errorf("embedded %s.%s: %w", val.Type, f.Name, err)
			}
			buf.WriteByte('}')
		}
		buf.WriteString(`]}`)
	case List:
		buf.WriteString(`{"t":"list","v":[`)
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, elem, canonical, level+1); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		buf.WriteString(`]}`)
	case Map:
		buf.WriteString(`{"t":"map","v":{`)
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k, canonical)
			buf.WriteByte(':')
			if err := encodeValue(buf, val[k], canonical, level+1); err != nil {
				return fmt.Errorf("map[%q]: %w", k, err)
			}
		}
		buf.WriteString(`}}`)
	default:
		return fmt.Errorf("unknown value type: %T", v)
	}
	return nil
}

func writeTaggedString(buf *bytes.Buffer, tag, s string, canonical bool) {
	buf.WriteString(`{"t":"`)
	buf.WriteString(tag)
	buf.WriteString(`","v":`)
	writeString(buf, s, canonical)
	buf.WriteByte('}')
}

// writeString writes a JSON string without HTML escaping.
func writeString(buf *bytes.Buffer, s string, canonical bool) {
	if canonical {
		s = norm.NFC.String(s)
	}
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // strings always encode
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
}

// UnmarshalTagged decodes the storage (or canonical) encoding.
func UnmarshalTagged(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return decodeTagged(raw, 0)
}

func decodeTagged(raw any, level int) (Value, error) {
	if level > MaxDepth {
		return nil, ErrTooDeep
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tagged value must be an object, got %T", raw)
	}
	tag, _ := obj["t"].(string)
	payload := obj["v"]

	switch tag {
	case "null":
		return Null{}, nil
	case "bool":
		b, ok := payload.(bool)
		if !ok {
			return nil, fmt.Errorf("bool payload: got %T", payload)
		}
		return Bool(b), nil
	case "int":
		n, ok := payload.(json.Number)
		if !ok {
			return nil, fmt.Errorf("int payload: got %T", payload)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("int payload: %w", err)
		}
		return Int(i), nil
	case "float":
		f, err := strconv.ParseFloat(stringPayload(payload), 32)
		if err != nil {
			return nil, fmt.Errorf("float payload: %w", err)
		}
		return Float(float32(f)), nil
	case "double":
		f, err := strconv.ParseFloat(stringPayload(payload), 64)
		if err != nil {
			return nil, fmt.Errorf("double payload: %w", err)
		}
		return Double(f), nil
	case "string":
		s, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("string payload: got %T", payload)
		}
		return String(s), nil
	case "binary":
		b, err := base64.StdEncoding.DecodeString(stringPayload(payload))
		if err != nil {
			return nil, fmt.Errorf("binary payload: %w", err)
		}
		return Binary(b), nil
	case "date":
		t, err := time.Parse(time.RFC3339Nano, stringPayload(payload))
		if err != nil {
			return nil, fmt.Errorf("date payload: %w", err)
		}
		return Date(t.UTC()), nil
	case "decimal":
		return ParseDecimal(stringPayload(payload))
	case "uuid":
		return ParseUUID(stringPayload(payload))
	case "enum":
		rawValue, err := decodeTagged(payload, level+1)
		if err != nil {
			return nil, fmt.Errorf("enum payload: %w", err)
		}
		typ, _ := obj["type"].(string)
		return Enum{Type: typ, Raw: rawValue}, nil
	case "object":
		typ, _ := obj["type"].(string)
		id, _ := obj["id"].(string)
		ref := ObjectRef{Type: typ, ID: id}
		if pk, ok := obj["pk"]; ok {
			key, err := decodeTagged(pk, level+1)
			if err != nil {
				return nil, fmt.Errorf("object primary key: %w", err)
			}
			ref.PrimaryKey = key
		}
		return ref, nil
	case "embedded":
		typ, _ := obj["type"].(string)
		fields, ok := payload.([]any)
		if !ok {
			return nil, fmt.Errorf("embedded payload: got %T", payload)
		}
		out := Embedded{Type: typ, Fields: make([]Field, 0, len(fields))}
		for i, f := range fields {
			fo, ok := f.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("embedded field %d: got %T", i, f)
			}
			name, _ := fo["name"].(string)
			fv, err := decodeTagged(fo["v"], level+1)
			if err != nil {
				return nil, fmt.Errorf("embedded %s.%s: %w", typ, name, err)
			}
			out.Fields = append(out.Fields, Field{Name: name, Value: fv})
		}
		return out, nil
	case "list":
		elems, ok := payload.([]any)
		if !ok {
			return nil, fmt.Errorf("list payload: got %T", payload)
		}
		out := make(List, len(elems))
		for i, elem := range elems {
			ev, err := decodeTagged(elem, level+1)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	case "map":
		entries, ok := payload.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("map payload: got %T", payload)
		}
		out := make(Map, len(entries))
		for k, elem := range entries {
			ev, err := decodeTagged(elem, level+1)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			out[k] = ev
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown value tag %q", tag)
	}
}

func stringPayload(v any) string {
	s, _ := v.(string)
	return s
}
