package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tsq/internal/engine"
	"github.com/roach88/tsq/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	MaxSteps int
}

// RunResult is a query executed against the store.
type RunResult struct {
	CompileResult
	Matches []string `json:"matches"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <query.yaml>",
		Short: "Compile a query and run it against the store",
		Long: `Compile a query document and execute the predicate against the
objects stored in the SQLite database.

Matching object ids are printed in insertion order.

Example:
  tsq run --db ./tsq.db adults.yaml
  tsq run adults.yaml --max-steps 10000 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", engine.DefaultMaxSteps, "evaluation step limit per query (0 = unlimited)")

	return cmd
}

func runQuery(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := loadValidSchema(formatter, opts.Schema)
	if err != nil {
		return err
	}

	doc, err := readQuery(opts.Fs, path)
	if err != nil {
		return reportError(formatter, ExitCommandError, errorCode(err), err.Error(), nil)
	}

	compiled, err := compileDocument(s, doc)
	if err != nil {
		return reportCompileError(formatter, err)
	}
	compileResult, err := newCompileResult(doc.Root, compiled)
	if err != nil {
		return reportError(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
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

	eng := engine.New(st, engine.WithLogger(slog.Default()), engine.WithMaxSteps(opts.MaxSteps))
	matches, err := eng.ExecuteCompiled(ctx, compiled, doc.Root)
	if err != nil {
		exitCode := ExitCommandError
		if engine.IsStepsExceededError(err) {
			exitCode = ExitFailure
		}
		return reportError(formatter, exitCode, ErrCodeExecute, err.Error(), nil)
	}
	if matches == nil {
		matches = []string{}
	}
	slog.Info("query executed", "root", doc.Root, "matches", len(matches), "db", opts.Database)

	result := RunResult{CompileResult: compileResult, Matches: matches}
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s %d %s object(s) match %s\n", passMark(), len(matches), doc.Root, compiled.Format)
	if len(compileResult.Args) > 0 {
		fmt.Fprintf(w, "  args: %s\n", strings.Join(compileResult.Args, ", "))
	}
	if len(matches) > 0 {
		fmt.Fprintln(w)
	}
	for _, id := range matches {
		fmt.Fprintf(w, "  %s\n", id)
	}
	return nil
}
