package cli

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/store"
)

// TypeCount is the number of stored objects of one type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ObjectEntry is one stored object with its fields rendered by ir.Format.
type ObjectEntry struct {
	ID     string `json:"id"`
	Seq    int64  `json:"seq"`
	Fields string `json:"fields"`
}

// ObjectsResult is the output of the objects command: type counts when no
// type is given, otherwise the objects of that type.
type ObjectsResult struct {
	Types   []TypeCount   `json:"types,omitempty"`
	Type    string        `json:"type,omitempty"`
	Objects []ObjectEntry `json:"objects,omitempty"`
}

// NewObjectsCommand creates the objects command.
func NewObjectsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objects [type]",
		Short: "List stored objects",
		Long: `List what the database holds.

Without arguments, prints each stored type with its object count.
With a type, prints that type's objects in insertion order.

Examples:
  tsq objects --db ./tsq.db
  tsq objects --db ./tsq.db Person --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			typeName := ""
			if len(args) == 1 {
				typeName = args[0]
			}
			return runObjects(rootOpts, typeName, cmd)
		},
	}
	return cmd
}

func runObjects(opts *RootOptions, typeName string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	// The objects command only reads, so it refuses to create a database.
	if _, err := opts.Fs.Stat(opts.Database); err != nil {
		return reportError(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}

	st, err := store.Open(opts.Database)
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

	var result ObjectsResult
	if typeName == "" {
		result.Types, err = typeCounts(ctx, st)
	} else {
		result.Type = typeName
		result.Objects, err = objectEntries(ctx, st, typeName)
	}
	if err != nil {
		return reportError(formatter, ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputObjectsText(formatter, result)
}

func typeCounts(ctx context.Context, st *store.Store) ([]TypeCount, error) {
	types, err := st.Types(ctx)
	if err != nil {
		return nil, err
	}
	counts := make([]TypeCount, 0, len(types))
	for _, t := range types {
		n, err := st.Count(ctx, t)
		if err != nil {
			return nil, err
		}
		counts = append(counts, TypeCount{Type: t, Count: n})
	}
	return counts, nil
}

func objectEntries(ctx context.Context, st *store.Store, typeName string) ([]ObjectEntry, error) {
	objs, err := st.Objects(ctx, typeName)
	if err != nil {
		return nil, err
	}
	entries := make([]ObjectEntry, 0, len(objs))
	for _, obj := range objs {
		entries = append(entries, ObjectEntry{ID: obj.ID, Seq: obj.Seq, Fields: ir.Format(obj.Fields)})
	}
	return entries, nil
}

func outputObjectsText(f *OutputFormatter, result ObjectsResult) error {
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	if result.Type == "" {
		if len(result.Types) == 0 {
			fmt.Fprintln(f.Writer, "No objects stored.")
			return nil
		}
		for _, tc := range result.Types {
			fmt.Fprintf(tw, "%s\t%d\n", tc.Type, tc.Count)
		}
		return tw.Flush()
	}

	if len(result.Objects) == 0 {
		fmt.Fprintf(f.Writer, "No %s objects stored.\n", result.Type)
		return nil
	}
	for _, obj := range result.Objects {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", obj.Seq, obj.ID, obj.Fields)
	}
	return tw.Flush()
}
