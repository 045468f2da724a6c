package store

import (
	"context"
	"fmt"

	"github.com/roach88/tsq/internal/engine"
	"github.com/roach88/tsq/internal/ir"
)

// Put stores obj, replacing any object with the same type and id.
//
// An empty obj.Type is taken from obj.Fields.Type. An empty obj.ID is
// filled in first from the schema's primary key, then from the store's
// IDGenerator. On return obj.ID and obj.Seq hold the stored values; a
// replaced object keeps its original Seq.
func (s *Store) Put(ctx context.Context, obj *engine.Object) error {
	return s.PutAll(ctx, []*engine.Object{obj})
}

// PutAll stores objs in one transaction. Either every object is stored or
// none is.
func (s *Store) PutAll(ctx context.Context, objs []*engine.Object) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put objects: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, obj := range objs {
		if err := s.prepare(obj); err != nil {
			return fmt.Errorf("put object: %w", err)
		}

		body, err := marshalBody(obj.Fields)
		if err != nil {
			return fmt.Errorf("put %s %q: %w", obj.Type, obj.ID, err)
		}

		// The conflict clause updates in place, so seq is preserved.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO objects (type, id, body)
			VALUES (?, ?, ?)
			ON CONFLICT(type, id) DO UPDATE SET body = excluded.body
		`, obj.Type, obj.ID, body)
		if err != nil {
			return fmt.Errorf("put %s %q: insert: %w", obj.Type, obj.ID, err)
		}

		err = tx.QueryRowContext(ctx, `
			SELECT seq FROM objects WHERE type = ? AND id = ?
		`, obj.Type, obj.ID).Scan(&obj.Seq)
		if err != nil {
			return fmt.Errorf("put %s %q: read seq: %w", obj.Type, obj.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put objects: commit: %w", err)
	}
	return nil
}

// Delete removes one object. It reports whether the object existed.
func (s *Store) Delete(ctx context.Context, typeName, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE type = ? AND id = ?`, typeName, id)
	if err != nil {
		return false, fmt.Errorf("delete %s %q: %w", typeName, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s %q: rows affected: %w", typeName, id, err)
	}
	return n > 0, nil
}

// prepare fills in the type and id of obj and checks it against the schema.
func (s *Store) prepare(obj *engine.Object) error {
	if obj.Type == "" {
		obj.Type = obj.Fields.Type
	}
	if obj.Type == "" {
		return fmt.Errorf("object has no type")
	}
	switch obj.Fields.Type {
	case "":
		obj.Fields.Type = obj.Type
	case obj.Type:
	default:
		return fmt.Errorf("object type %q does not match its fields' type %q", obj.Type, obj.Fields.Type)
	}

	if s.schema != nil {
		def, ok := s.schema.Object(obj.Type)
		if !ok {
			return fmt.Errorf("unknown object type %q", obj.Type)
		}
		if def.Embedded {
			return fmt.Errorf("%s is embedded and cannot be stored on its own", obj.Type)
		}
		if obj.ID == "" && def.PrimaryKey != "" {
			pk, ok := obj.Fields.Field(def.PrimaryKey)
			if ok && !ir.IsNull(pk) {
				obj.ID = ir.KeyText(pk)
			}
			if obj.ID == "" {
				return fmt.Errorf("%s has no value for primary key %q", obj.Type, def.PrimaryKey)
			}
		}
	}

	if obj.ID == "" {
		obj.ID = s.ids.Generate()
	}
	return nil
}
