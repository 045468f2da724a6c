package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ScenarioNotFoundError is returned when a scenario path does not exist or
// a directory holds no scenarios.
type ScenarioNotFoundError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("no scenarios at %s: %s", e.Path, e.Reason)
}

// FindScenarios returns the scenario files at path. A file is returned as
// is; a directory yields its *.yaml and *.yml files, sorted, without
// descending into subdirectories.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path, Reason: "path does not exist"}
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, &ScenarioNotFoundError{Path: path, Reason: "directory contains no .yaml files"}
	}
	slices.Sort(files)
	return files, nil
}
