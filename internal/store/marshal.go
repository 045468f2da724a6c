package store

import (
	"fmt"

	"github.com/roach88/tsq/internal/ir"
)

// marshalBody converts an object's fields to tagged JSON TEXT for storage.
func marshalBody(fields ir.Embedded) (string, error) {
	data, err := ir.MarshalTagged(fields)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

// unmarshalBody parses tagged JSON TEXT back into an object's fields.
// Large integers survive because the decoder keeps JSON numbers exact.
func unmarshalBody(data string) (ir.Embedded, error) {
	v, err := ir.UnmarshalTagged([]byte(data))
	if err != nil {
		return ir.Embedded{}, fmt.Errorf("unmarshal body: %w", err)
	}
	emb, ok := v.(ir.Embedded)
	if !ok {
		return ir.Embedded{}, fmt.Errorf("unmarshal body: got %s, want embedded object", v.Kind())
	}
	return emb, nil
}
