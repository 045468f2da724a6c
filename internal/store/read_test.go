package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/roach88/tsq/internal/engine"
	"github.com/roach88/tsq/internal/ir"
)

func TestGet_RoundTripsEveryKind(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	obj := createTestObject(t, "Person", "Ann", map[string]any{
		"name":     "Ann",
		"age":      10,
		"height":   1.42,
		"weight":   31.5,
		"balance":  "12345678901234567890.01",
		"born":     "2016-02-29T12:00:00Z",
		"photo":    "aGVsbG8=",
		"token":    "0190a6b2-7c3d-7e4f-8a5b-6c7d8e9f0a1b",
		"active":   true,
		"mood":     "calm",
		"level":    3,
		"partner":  "Bob",
		"address":  map[string]any{"city": "Oslo", "country": "NO"},
		"homes":    []any{map[string]any{"city": "Bergen"}},
		"scores":   []any{1, 9007199254740993},
		"tags":     []any{"x"},
		"prices":   map[string]any{"eur": 1.5},
		"extra":    map[string]any{"$type": "decimal", "value": "0.1"},
		"extras":   []any{1, "two", nil},
		"nickname": nil,
	})
	if err := s.Put(ctx, obj); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, err := s.Get(ctx, "Person", "Ann")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Seq != obj.Seq || got.Type != "Person" || got.ID != "Ann" {
		t.Errorf("Get() header = (%d, %s, %s), want (%d, Person, Ann)", got.Seq, got.Type, got.ID, obj.Seq)
	}
	if !ir.Equal(got.Fields, obj.Fields) {
		t.Errorf("fields did not round-trip:\n got  %s\n want %s", ir.Format(got.Fields), ir.Format(obj.Fields))
	}
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Get(context.Background(), "Dog", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestObject_ImplementsSource(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, createTestObject(t, "Dog", "rex", map[string]any{"name": "Rex"})); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	var src engine.Source = s
	obj, ok, err := src.Object(ctx, "Dog", "rex")
	if err != nil || !ok {
		t.Fatalf("Object() = %v, %v; want found", ok, err)
	}
	if obj.ID != "rex" {
		t.Errorf("ID = %q, want rex", obj.ID)
	}

	_, ok, err = src.Object(ctx, "Dog", "fido")
	if err != nil || ok {
		t.Errorf("Object(missing) = %v, %v; want false, nil", ok, err)
	}
}

func TestObjects_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := s.Put(ctx, createTestObject(t, "Dog", id, nil)); err != nil {
			t.Fatalf("Put(%s) failed: %v", id, err)
		}
	}
	if err := s.Put(ctx, createTestObject(t, "Toy", "ball", nil)); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	objs, err := s.Objects(ctx, "Dog")
	if err != nil {
		t.Fatalf("Objects() failed: %v", err)
	}
	var ids []string
	for _, o := range objs {
		ids = append(ids, o.ID)
	}
	if want := []string{"c", "a", "b"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("Objects() ids = %v, want %v", ids, want)
	}
}

func TestObjects_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	objs, err := s.Objects(context.Background(), "Dog")
	if err != nil {
		t.Fatalf("Objects() failed: %v", err)
	}
	if objs == nil || len(objs) != 0 {
		t.Errorf("Objects() = %#v, want empty slice", objs)
	}
}

func TestTypes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, obj := range []*engine.Object{
		createTestObject(t, "Toy", "ball", nil),
		createTestObject(t, "Dog", "rex", nil),
		createTestObject(t, "Dog", "fido", nil),
	} {
		if err := s.Put(ctx, obj); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}

	types, err := s.Types(ctx)
	if err != nil {
		t.Fatalf("Types() failed: %v", err)
	}
	if want := []string{"Dog", "Toy"}; !reflect.DeepEqual(types, want) {
		t.Errorf("Types() = %v, want %v", types, want)
	}
}

func TestStore_ServesEngine(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	objs := []*engine.Object{
		createTestObject(t, "Person", "Ann", map[string]any{"name": "Ann", "age": 10, "dogs": []any{"rex"}, "level": 1}),
		createTestObject(t, "Person", "Bob", map[string]any{"name": "Bob", "age": 18, "level": 2}),
		createTestObject(t, "Dog", "rex", map[string]any{"name": "Rex", "age": 3, "toys": []any{"ball"}}),
		createTestObject(t, "Toy", "ball", map[string]any{"name": "ball", "price": "2.50"}),
	}
	if err := s.PutAll(ctx, objs); err != nil {
		t.Fatalf("PutAll() failed: %v", err)
	}

	e := engine.New(s, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	tests := []struct {
		format string
		args   []ir.Value
		want   []string
	}{
		{"age >= %@", []ir.Value{ir.Int(10)}, []string{"Ann", "Bob"}},
		{"ANY dogs.name == %@", []ir.Value{ir.String("Rex")}, []string{"Ann"}},
		{"ANY dogs.toys.price.@sum > 2", nil, []string{"Ann"}},
		{"dogs.@count == 0", nil, []string{"Bob"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := e.Execute(ctx, tt.format, tt.args, "Person")
			if err != nil {
				t.Fatalf("Execute() failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Execute() = %v, want %v", got, tt.want)
			}
		})
	}
}
