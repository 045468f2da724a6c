package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/schema"
)

// SchemaSummary describes a loaded schema.
type SchemaSummary struct {
	Objects []ObjectSummary `json:"objects"`
	Enums   []EnumSummary   `json:"enums"`
}

// ObjectSummary describes one object type.
type ObjectSummary struct {
	Name       string            `json:"name"`
	Embedded   bool              `json:"embedded,omitempty"`
	PrimaryKey string            `json:"primary_key,omitempty"`
	Properties []PropertySummary `json:"properties"`
}

// PropertySummary describes one property; Type reads like the CUE
// shorthand, e.g. "int", "Person?" or "list<Dog>".
type PropertySummary struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// EnumSummary describes one enum.
type EnumSummary struct {
	Name  string   `json:"name"`
	Raw   string   `json:"raw"`
	Cases []string `json:"cases"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [path]",
		Short: "Load and validate a schema",
		Long: `Load a CUE schema file or directory, validate it, and print its
object types and enums.

Validation checks links and enums resolve, primary keys are usable,
embedded objects have no identity, and enum cases match their raw type.

Exit codes:
  0 - Schema is valid
  1 - Schema has validation errors
  2 - Schema could not be loaded

Examples:
  tsq schema ./schema
  tsq schema --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Schema
			if len(args) == 1 {
				path = args[0]
			}
			return runSchema(rootOpts, path, cmd)
		},
	}
	return cmd
}

func runSchema(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, errs := LoadSchema(path)
	if s == nil {
		var loadErr *schema.LoadError
		if errors.As(errs[0], &loadErr) {
			return reportError(formatter, ExitCommandError, loadErr.Code, loadErr.Error(), nil)
		}
		return reportError(formatter, ExitCommandError, ErrCodeGeneric, errs[0].Error(), nil)
	}
	if len(errs) > 0 {
		return outputSchemaErrors(formatter, errs)
	}

	summary := summarizeSchema(s)
	if formatter.JSON() {
		return formatter.Success(summary)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s Schema is valid: %d object type(s), %d enum(s)\n", passMark(), len(summary.Objects), len(summary.Enums))
	for _, obj := range summary.Objects {
		fmt.Fprintln(w)
		header := obj.Name
		switch {
		case obj.Embedded:
			header += " (embedded)"
		case obj.PrimaryKey != "":
			header += " (primary key: " + obj.PrimaryKey + ")"
		}
		fmt.Fprintln(w, header)
		for _, p := range obj.Properties {
			fmt.Fprintf(w, "  %-12s %s\n", p.Name, p.Type)
		}
	}
	for _, e := range summary.Enums {
		fmt.Fprintf(w, "\nenum %s (%s): %v\n", e.Name, e.Raw, e.Cases)
	}
	return nil
}

func outputSchemaErrors(f *OutputFormatter, errs []error) error {
	verrs := make([]schema.ValidationError, 0, len(errs))
	for _, err := range errs {
		var verr schema.ValidationError
		if errors.As(err, &verr) {
			verrs = append(verrs, verr)
		}
	}

	if f.JSON() {
		_ = f.Failure(ErrCodeSchema, fmt.Sprintf("schema has %d validation error(s)", len(errs)), verrs)
	} else {
		fmt.Fprintf(f.Writer, "%s Schema validation failed\n\n", failMark())
		for _, verr := range verrs {
			fmt.Fprintf(f.Writer, "  %s %s: %s\n", verr.Code, verr.Field, verr.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("schema has %d validation error(s)", len(errs)))
}

func summarizeSchema(s *schema.Schema) SchemaSummary {
	summary := SchemaSummary{Objects: []ObjectSummary{}, Enums: []EnumSummary{}}
	for _, name := range s.ObjectNames() {
		obj, _ := s.Object(name)
		sum := ObjectSummary{Name: obj.Name, Embedded: obj.Embedded, PrimaryKey: obj.PrimaryKey}
		for _, p := range obj.Properties {
			sum.Properties = append(sum.Properties, PropertySummary{Name: p.Name, Type: describeProperty(p)})
		}
		summary.Objects = append(summary.Objects, sum)
	}

	names := make([]string, 0, len(s.Enums))
	for name := range s.Enums {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e := s.Enums[name]
		es := EnumSummary{Name: e.Name, Raw: e.Raw.String(), Cases: make([]string, len(e.Cases))}
		for i, c := range e.Cases {
			es.Cases[i] = ir.Format(c)
		}
		summary.Enums = append(summary.Enums, es)
	}
	return summary
}

func describeProperty(p schema.Property) string {
	elem := p.Type.String()
	switch p.Type {
	case schema.TypeObject:
		elem = p.ObjectType
	case schema.TypeEnum:
		elem = p.Enum
	}
	if p.Optional {
		elem += "?"
	}
	if p.IsCollection() {
		return fmt.Sprintf("%s<%s>", p.Collection, elem)
	}
	return elem
}
