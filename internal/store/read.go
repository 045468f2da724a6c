package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tsq/internal/engine"
)

// ErrNotFound is returned by Get when no object has the requested type and
// id.
var ErrNotFound = errors.New("object not found")

var _ engine.Source = (*Store)(nil)

// Get returns one object. Returns an error wrapping ErrNotFound if it does
// not exist.
func (s *Store) Get(ctx context.Context, typeName, id string) (engine.Object, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, type, id, body
		FROM objects
		WHERE type = ? AND id = ?
	`, typeName, id)

	obj, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Object{}, fmt.Errorf("get %s %q: %w", typeName, id, ErrNotFound)
	}
	if err != nil {
		return engine.Object{}, fmt.Errorf("get %s %q: %w", typeName, id, err)
	}
	return obj, nil
}

// Object implements engine.Source.
func (s *Store) Object(ctx context.Context, typeName, id string) (engine.Object, bool, error) {
	obj, err := s.Get(ctx, typeName, id)
	if errors.Is(err, ErrNotFound) {
		return engine.Object{}, false, nil
	}
	if err != nil {
		return engine.Object{}, false, err
	}
	return obj, true, nil
}

// Objects implements engine.Source. Results are ordered by seq.
//
// Returns an empty slice (not nil) if no objects of typeName exist.
func (s *Store) Objects(ctx context.Context, typeName string) ([]engine.Object, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, type, id, body
		FROM objects
		WHERE type = ?
		ORDER BY seq ASC
	`, typeName)
	if err != nil {
		return nil, fmt.Errorf("query %s objects: %w", typeName, err)
	}
	defer rows.Close()

	objects := []engine.Object{}
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s objects: %w", typeName, err)
	}
	return objects, nil
}

// Count returns the number of stored objects of typeName.
func (s *Store) Count(ctx context.Context, typeName string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM objects WHERE type = ?`, typeName).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s objects: %w", typeName, err)
	}
	return n, nil
}

// Types returns the distinct object types in the store, sorted by name.
func (s *Store) Types(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT type FROM objects ORDER BY type COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query types: %w", err)
	}
	defer rows.Close()

	types := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate types: %w", err)
	}
	return types, nil
}

// scanner is the subset of *sql.Row and *sql.Rows scanObject needs.
type scanner interface {
	Scan(dest ...any) error
}

func scanObject(row scanner) (engine.Object, error) {
	var (
		obj  engine.Object
		body string
	)
	if err := row.Scan(&obj.Seq, &obj.Type, &obj.ID, &body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return engine.Object{}, err
		}
		return engine.Object{}, fmt.Errorf("scan object: %w", err)
	}

	fields, err := unmarshalBody(body)
	if err != nil {
		return engine.Object{}, fmt.Errorf("%s %q: %w", obj.Type, obj.ID, err)
	}
	obj.Fields = fields
	return obj, nil
}
