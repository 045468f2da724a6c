package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tsq/internal/harness"
	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/predicate"
	"github.com/roach88/tsq/internal/query"
	"github.com/roach88/tsq/internal/schema"
)

// Error code constants for CLI commands. Schema load errors keep the
// E001-E007 codes of the schema package; schema validation errors keep
// their E1xx codes; compile errors report the rule code of the first
// violation (UNORDERED_TYPE, UNKNOWN_PROPERTY, ...).
const (
	ErrCodeGeneric      = schema.ErrCodeGeneric  // Generic/unknown error
	ErrCodeNotFound     = schema.ErrCodeNotFound // Path not found
	ErrCodeInvalidInput = "E010"                 // Malformed query or objects document
	ErrCodeWriteFailed  = "E011"                 // File write error
	ErrCodeSchema       = "E100"                 // Schema failed validation
	ErrCodeExecute      = "E202"                 // Query execution failed
	ErrCodeStore        = "E301"                 // Database error
	ErrCodeTestFailed   = "E_TEST_FAILED"        // One or more scenarios failed
)

// ObjectsFile is the document read by the load command.
//
//	objects:
//	  - type: Person
//	    fields: {name: Ann, age: 10}
//	  - type: Dog
//	    id: rex
//	    fields: {name: Rex, owner: Ann}
type ObjectsFile struct {
	Objects []harness.ObjectSpec `yaml:"objects"`
}

// LoadSchema loads the schema at path and validates it. A load failure is
// returned alone; validation failures are all returned.
func LoadSchema(path string) (*schema.Schema, []error) {
	s, err := schema.Load(path)
	if err != nil {
		return nil, []error{err}
	}

	var errs []error
	for _, verr := range schema.Validate(s) {
		errs = append(errs, verr)
	}
	if len(errs) > 0 {
		return s, errs
	}
	return s, nil
}

// loadValidSchema is LoadSchema for commands that only need a usable
// schema. Any failure becomes an ExitError after being reported.
func loadValidSchema(f *OutputFormatter, path string) (*schema.Schema, error) {
	s, errs := LoadSchema(path)
	if len(errs) == 0 {
		f.VerboseLog("Loaded schema %s (%d object type(s))", path, len(s.Objects))
		return s, nil
	}
	code, message := errorCode(errs[0]), errs[0].Error()
	if s != nil {
		code = ErrCodeSchema
		message = fmt.Sprintf("schema %s is invalid: %v", path, errs[0])
	}
	return nil, reportError(f, ExitCommandError, code, message, nil)
}

// readQuery reads a YAML or JSON query document.
func readQuery(fs afero.Fs, path string) (*query.Document, error) {
	data, err := readFile(fs, path)
	if err != nil {
		return nil, err
	}
	doc, err := query.DecodeDocument(data)
	if err != nil {
		return nil, &inputError{path: path, err: err}
	}
	return doc, nil
}

// readObjects reads an objects document. Unknown fields are rejected.
func readObjects(fs afero.Fs, path string) ([]harness.ObjectSpec, error) {
	data, err := readFile(fs, path)
	if err != nil {
		return nil, err
	}

	var file ObjectsFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, &inputError{path: path, err: fmt.Errorf("failed to parse YAML: %w", err)}
	}
	for i, obj := range file.Objects {
		if obj.Type == "" {
			return nil, &inputError{path: path, err: fmt.Errorf("objects[%d]: type is required", i)}
		}
	}
	return file.Objects, nil
}

func readFile(fs afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &notFoundError{path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// compileDocument resolves doc against s and compiles it.
func compileDocument(s *schema.Schema, doc *query.Document) (predicate.CompiledPredicate, error) {
	b := query.NewBuilder(keypath.NewResolver(s), doc.Root)
	compiler := predicate.NewCompiler(predicate.WithLogger(slog.Default()))
	return compiler.Compile(doc.Build(b))
}

type notFoundError struct{ path string }

func (e *notFoundError) Error() string { return "file not found: " + e.path }

type inputError struct {
	path string
	err  error
}

func (e *inputError) Error() string { return fmt.Sprintf("%s: %v", e.path, e.err) }
func (e *inputError) Unwrap() error { return e.err }

// errorCode picks the most specific code for err.
func errorCode(err error) string {
	var (
		loadErr     *schema.LoadError
		pathErr     *keypath.PathResolutionError
		unsupported *query.UnsupportedOperatorError
		mismatch    *query.TypeMismatchError
		notFound    *notFoundError
		input       *inputError
	)
	switch {
	case errors.As(err, &loadErr):
		return loadErr.Code
	case errors.As(err, &pathErr):
		return string(pathErr.Code)
	case errors.As(err, &unsupported):
		return string(unsupported.Code)
	case errors.As(err, &mismatch):
		return "TYPE_MISMATCH"
	case errors.As(err, &notFound):
		return ErrCodeNotFound
	case errors.As(err, &input):
		return ErrCodeInvalidInput
	}
	return ErrCodeGeneric
}

// errorMessages flattens aggregated errors into one message each.
func errorMessages(err error) []string {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		out := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

// reportError writes an error in the configured format and returns the
// matching ExitError.
func reportError(f *OutputFormatter, exitCode int, code, message string, details any) error {
	_ = f.Error(code, message, details)
	return WrapExitError(exitCode, fmt.Sprintf("%s: %s", code, message), nil)
}

// reportCompileError reports every violation in err.
func reportCompileError(f *OutputFormatter, err error) error {
	messages := errorMessages(err)
	code := errorCode(err)
	if f.JSON() {
		return reportError(f, ExitCommandError, code, messages[0], messages)
	}

	fmt.Fprintf(f.Writer, "%s Compilation failed\n\n", failMark())
	for _, m := range messages {
		fmt.Fprintf(f.Writer, "  %s\n", m)
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(messages)))
}
