package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/predicate"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompileResult is a compiled query document.
type CompileResult struct {
	Root      string   `json:"root"`
	Predicate string   `json:"predicate"`
	Args      []string `json:"args"` // rendered with ir.Format
	Hash      string   `json:"hash"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query.yaml>",
		Short: "Compile a query document to a predicate",
		Long: `Compile a YAML or JSON query document against the schema.

Prints the predicate format string, its ordered arguments, and the
predicate hash. Compilation fails if a property path does not resolve
or an operator is not valid for the property's type.

Example:
  tsq compile --schema ./schema adults.yaml
  tsq compile adults.yaml -o adults.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the JSON result to a file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
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

	result, err := newCompileResult(doc.Root, compiled)
	if err != nil {
		return reportError(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeJSON(opts.Fs, opts.Output, result); err != nil {
			return reportError(formatter, ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s Compiled query over %s\n\n", passMark(), result.Root)
	fmt.Fprintf(w, "  predicate: %s\n", result.Predicate)
	fmt.Fprintf(w, "  args:      %s\n", strings.Join(result.Args, ", "))
	fmt.Fprintf(w, "  hash:      %s\n", result.Hash)
	if opts.Output != "" {
		fmt.Fprintf(w, "\nWrote %s\n", opts.Output)
	}
	return nil
}

func newCompileResult(root string, p predicate.CompiledPredicate) (CompileResult, error) {
	hash, err := p.Hash()
	if err != nil {
		return CompileResult{}, err
	}
	return CompileResult{
		Root:      root,
		Predicate: p.Format,
		Args:      formatArgs(p.Args),
		Hash:      hash,
	}, nil
}

func formatArgs(args []ir.Value) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = ir.Format(a)
	}
	return out
}

// writeJSON writes v as indented JSON.
func writeJSON(fs afero.Fs, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, append(data, '\n'), 0644)
}
