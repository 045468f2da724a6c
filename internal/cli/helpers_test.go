package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

const (
	testSchema  = "testdata/schema/people.cue"
	testObjects = "testdata/objects/people.yaml"
)

func init() {
	color.NoColor = true
	homedir.DisableCache = true
}

// executeCommand runs the root command with args and returns what it wrote
// to stdout and stderr. HOME points at an empty directory so no user
// config is picked up.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&RootOptions{Fs: afero.NewOsFs()})
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// tempDatabase returns a database path inside a fresh temp directory.
func tempDatabase(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// loadObjects stores the shared test objects in db.
func loadObjects(t *testing.T, db string) {
	t.Helper()
	if _, _, err := executeCommand(t, "--schema", testSchema, "--db", db, "load", testObjects); err != nil {
		t.Fatalf("load failed: %v", err)
	}
}

// writeFile writes content to name inside dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// absPath resolves a testdata path so it can be referenced from temp dirs.
func absPath(t *testing.T, path string) string {
	t.Helper()
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("abs %s: %v", path, err)
	}
	return abs
}
