package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tsq/internal/testutil"
)

// peopleSource stores four people whose ages are 10, 18, 40 and 70, plus
// their dogs and toys:
//
//	Ann  age 10  dogs [rex]         scores [1 2 3]  partner Bob
//	Bob  age 18  dogs [fido spot]   scores []       partner Ann
//	Cat  age 40  dogs []            scores [0 5]    no partner
//	Dan  age 70  dogs [max]         scores []       partner Nobody (dangling)
//
// Ann's photo is the bytes 1 2 3 4 and Cat's is 3 4 5.
func peopleSource(t *testing.T) *MemorySource {
	t.Helper()
	s := testutil.PeopleSchema()
	src := NewMemorySource()

	add := func(typ, id string, fields map[string]any) {
		t.Helper()
		emb, err := s.CoerceObject(typ, fields)
		require.NoError(t, err)
		src.Add(Object{Type: typ, ID: id, Fields: emb})
	}

	add("Person", "Ann", map[string]any{
		"name":    "Ann",
		"age":     10,
		"balance": "1.50",
		"tags":    []any{"a"},
		"dogs":    []any{"rex"},
		"scores":  []any{1, 2, 3},
		"partner": "Bob",
		"mood":    "happy",
		"level":   1,
		"photo":   []byte{1, 2, 3, 4},
		"address": map[string]any{"city": "Oslo"},
		"homes":   []any{map[string]any{"city": "Oslo"}},
		"prices":  map[string]any{"eur": 1.5},
		"pets":    map[string]any{"best": "rex"},
	})
	add("Person", "Bob", map[string]any{
		"name":     "Bob",
		"age":      18,
		"balance":  "10.25",
		"nickname": "Bobby",
		"tags":     []any{"x", "y"},
		"dogs":     []any{"fido", "spot"},
		"partner":  "Ann",
		"mood":     "sad",
		"level":    2,
		"address":  map[string]any{"city": "Bergen", "zip": "5003"},
		"homes": []any{
			map[string]any{"city": "Oslo", "zip": "0150"},
			map[string]any{"city": "Bergen"},
		},
		"extra": "hello",
	})
	add("Person", "Cat", map[string]any{
		"name":     "Cat",
		"age":      40,
		"balance":  "100",
		"nickname": "Kätchen",
		"scores":   []any{0, 5},
		"level":    3,
		"photo":    []byte{3, 4, 5},
		"extra":    7,
	})
	add("Person", "Dan", map[string]any{
		"name":     "Dan",
		"age":      70,
		"balance":  "0",
		"nickname": "dan",
		"dogs":     []any{"max"},
		"partner":  "Nobody",
		"level":    1,
	})

	add("Dog", "rex", map[string]any{"name": "Rex", "age": 3, "owner": "Ann", "toys": []any{"ball"}})
	add("Dog", "fido", map[string]any{"name": "Fido", "age": 5, "owner": "Bob", "toys": []any{"bone", "rope"}})
	add("Dog", "spot", map[string]any{"name": "Spot", "age": 1, "owner": "Bob"})
	add("Dog", "max", map[string]any{"name": "Max", "age": 12, "owner": "Dan", "toys": []any{"stick"}})

	add("Toy", "ball", map[string]any{"name": "ball", "price": "2.50"})
	add("Toy", "bone", map[string]any{"name": "bone", "price": "7"})
	add("Toy", "rope", map[string]any{"name": "rope", "price": "12.75"})
	add("Toy", "stick", map[string]any{"name": "stick", "price": "0"})
	return src
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quietEngine(src Source) *Engine {
	return New(src, WithLogger(quietLogger()))
}
