package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tsq/internal/query"
)

// Scenario is a conformance scenario: a schema, the objects to store, and
// queries with their expected compiled form and results.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the CUE schema file or directory. A relative path is
	// resolved against the scenario file's directory.
	Schema string `yaml:"schema"`

	// Objects are stored in order before any query runs.
	Objects []ObjectSpec `yaml:"objects"`

	Queries []QuerySpec `yaml:"queries"`
}

// ObjectSpec is one object to store. ID may be omitted when the type has a
// primary key, or to get a generated id.
type ObjectSpec struct {
	Type   string         `yaml:"type"`
	ID     string         `yaml:"id,omitempty"`
	Fields map[string]any `yaml:"fields"`
}

// QuerySpec is one query and its expectations.
type QuerySpec struct {
	Name   string        `yaml:"name"`
	Root   string        `yaml:"root"`
	Where  *query.Clause `yaml:"where"`
	Expect ExpectClause  `yaml:"expect"`
}

// ExpectClause lists what a query must produce. Unset fields are not
// checked.
type ExpectClause struct {
	// Predicate is the exact compiled format string.
	Predicate string `yaml:"predicate,omitempty"`

	// Args are the compiled arguments rendered with ir.Format, e.g.
	// `18` or `"Oslo"`.
	Args []string `yaml:"args,omitempty"`

	// Results are the matching ids in order. `results: []` expects none.
	Results []string `yaml:"results,omitempty"`

	// Error is a substring the compile or execution error must contain.
	Error string `yaml:"error,omitempty"`
}

func (e ExpectClause) empty() bool {
	return e.Predicate == "" && e.Args == nil && e.Results == nil && e.Error == ""
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving the schema path against
// baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Strict field validation catches typos like "querys:" vs "queries:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && baseDir != "" {
		scenario.Schema = filepath.Join(baseDir, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema not found: %s", s.Schema)
	}

	for i, obj := range s.Objects {
		if obj.Type == "" {
			return fmt.Errorf("objects[%d]: type is required", i)
		}
	}

	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Queries))
	for i, q := range s.Queries {
		if err := validateQuery(i, q); err != nil {
			return err
		}
		if names[q.Name] {
			return fmt.Errorf("queries[%d]: duplicate name %q", i, q.Name)
		}
		names[q.Name] = true
	}

	return nil
}

func validateQuery(index int, q QuerySpec) error {
	switch {
	case q.Name == "":
		return fmt.Errorf("queries[%d]: name is required", index)
	case q.Root == "":
		return fmt.Errorf("queries[%d] %s: root is required", index, q.Name)
	case q.Where == nil:
		return fmt.Errorf("queries[%d] %s: where is required", index, q.Name)
	case q.Expect.empty():
		return fmt.Errorf("queries[%d] %s: expect must set predicate, args, results or error", index, q.Name)
	case q.Expect.Error != "" && (q.Expect.Results != nil || q.Expect.Predicate != ""):
		return fmt.Errorf("queries[%d] %s: expect.error cannot be combined with predicate or results", index, q.Name)
	}
	return nil
}
