package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tsq/internal/engine"
	"github.com/roach88/tsq/internal/store"
)

// StoredObject identifies one object in the store.
type StoredObject struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Seq  int64  `json:"seq"`
}

// LoadResult lists the objects a load stored.
type LoadResult struct {
	Database string         `json:"database"`
	Objects  []StoredObject `json:"objects"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <objects.yaml>",
		Short: "Store objects in the database",
		Long: `Coerce the objects in a YAML document against the schema and store
them in the SQLite database, creating it if needed.

An object without an id takes its primary key value, or a generated
UUIDv7 when its type has no primary key. Storing an object whose type
and id already exist replaces it. All objects are stored in one
transaction.

Example:
  tsq load --db ./tsq.db people.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runLoad(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := loadValidSchema(formatter, opts.Schema)
	if err != nil {
		return err
	}

	specs, err := readObjects(opts.Fs, path)
	if err != nil {
		return reportError(formatter, ExitCommandError, errorCode(err), err.Error(), nil)
	}

	objs := make([]*engine.Object, 0, len(specs))
	for i, spec := range specs {
		fields, err := s.CoerceObject(spec.Type, spec.Fields)
		if err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("objects[%d]: %v", i, err), nil)
		}
		objs = append(objs, &engine.Object{Type: spec.Type, ID: spec.ID, Fields: fields})
	}

	st, err := store.Open(opts.Database, store.WithSchema(s))
	if err != nil {
		return reportError(formatter, ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := st.PutAll(ctx, objs); err != nil {
		return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	slog.Info("objects stored", "count", len(objs), "db", opts.Database)

	result := LoadResult{Database: opts.Database, Objects: make([]StoredObject, len(objs))}
	for i, obj := range objs {
		result.Objects[i] = StoredObject{Type: obj.Type, ID: obj.ID, Seq: obj.Seq}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s Stored %d object(s) in %s\n", passMark(), len(result.Objects), opts.Database)
	if len(result.Objects) > 0 {
		fmt.Fprintln(w)
	}
	for _, obj := range result.Objects {
		fmt.Fprintf(w, "  %s/%s (seq %d)\n", obj.Type, obj.ID, obj.Seq)
	}
	return nil
}
