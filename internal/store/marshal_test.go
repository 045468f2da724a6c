package store

import (
	"strings"
	"testing"

	"github.com/roach88/tsq/internal/ir"
)

func TestMarshalBody_Tagged(t *testing.T) {
	fields := ir.Embedded{Type: "Dog", Fields: []ir.Field{
		{Name: "name", Value: ir.String("Rex")},
		{Name: "age", Value: ir.Int(3)},
	}}

	body, err := marshalBody(fields)
	if err != nil {
		t.Fatalf("marshalBody() failed: %v", err)
	}
	if !strings.Contains(body, `"t":"embedded"`) || !strings.Contains(body, `"type":"Dog"`) {
		t.Errorf("body %s is not a tagged embedded object", body)
	}

	got, err := unmarshalBody(body)
	if err != nil {
		t.Fatalf("unmarshalBody() failed: %v", err)
	}
	if !ir.Equal(got, fields) {
		t.Errorf("unmarshalBody() = %s, want %s", ir.Format(got), ir.Format(fields))
	}
}

func TestUnmarshalBody_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"t":`},
		{"not an object", `{"t":"int","v":1}`},
		{"unknown tag", `{"t":"widget","v":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := unmarshalBody(tt.body); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
