package engine

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/roach88/tsq/internal/ir"
)

// Object is one stored top-level object.
type Object struct {
	Type   string
	ID     string
	Seq    int64
	Fields ir.Embedded
}

// Ref returns a link to o.
func (o Object) Ref() ir.ObjectRef {
	return ir.ObjectRef{Type: o.Type, ID: o.ID}
}

// Source supplies the objects a predicate is evaluated against.
type Source interface {
	// Objects returns every object of typeName in insertion order.
	Objects(ctx context.Context, typeName string) ([]Object, error)

	// Object returns one object by id. ok is false when it does not exist.
	Object(ctx context.Context, typeName, id string) (Object, bool, error)
}

// MemorySource is an in-memory Source. It is safe for concurrent use.
type MemorySource struct {
	mu      sync.RWMutex
	seq     *Sequence
	objects map[string]map[string]Object
}

// NewMemorySource creates an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		seq:     NewSequence(0),
		objects: make(map[string]map[string]Object),
	}
}

// Add stores objects, stamping each with the next sequence number. An
// object with an existing type and id replaces the old one and keeps its
// position.
func (m *MemorySource) Add(objs ...Object) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range objs {
		if o.Type == "" {
			o.Type = o.Fields.Type
		}
		byID, ok := m.objects[o.Type]
		if !ok {
			byID = make(map[string]Object)
			m.objects[o.Type] = byID
		}
		if old, ok := byID[o.ID]; ok {
			o.Seq = old.Seq
		} else {
			o.Seq = m.seq.Next()
		}
		byID[o.ID] = o
	}
}

// Objects implements Source.
func (m *MemorySource) Objects(_ context.Context, typeName string) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Object, 0, len(m.objects[typeName]))
	for _, o := range m.objects[typeName] {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b Object) int { return cmp.Compare(a.Seq, b.Seq) })
	return out, nil
}

// Object implements Source.
func (m *MemorySource) Object(_ context.Context, typeName, id string) (Object, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[typeName][id]
	return o, ok, nil
}
