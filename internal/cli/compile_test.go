package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeResponse parses JSON command output, decoding its data into data
// when data is non-nil.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	if data != nil && resp.Data != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, data))
	}
	return resp
}

func TestCompile_Text(t *testing.T) {
	out, _, err := executeCommand(t, "--schema", testSchema, "compile", "testdata/queries/adults.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled query over Person")
	assert.Contains(t, out, "predicate: (age >= %@) && (age < %@)")
	assert.Contains(t, out, "args:      18, 65")
	assert.Regexp(t, `hash:\s+[0-9a-f]{64}`, out)
}

func TestCompile_JSON(t *testing.T) {
	out, _, err := executeCommand(t, "--schema", testSchema, "--format", "json", "compile", "testdata/queries/grown-dogs.yaml")
	require.NoError(t, err)

	var result CompileResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Person", result.Root)
	assert.Equal(t, "SUBQUERY(dogs, $col0, $col0.age > %@).@count >= %@", result.Predicate)
	assert.Equal(t, []string{"2", "1"}, result.Args)
	assert.Len(t, result.Hash, 64)
}

func TestCompile_JSONDocument(t *testing.T) {
	out, _, err := executeCommand(t, "--schema", testSchema, "--format", "json", "compile", "testdata/queries/old-dog.json")
	require.NoError(t, err)

	var result CompileResult
	decodeResponse(t, out, &result)
	assert.Equal(t, "ANY dogs.age > %@", result.Predicate)
	assert.Equal(t, []string{"4"}, result.Args)
}

func TestCompile_HashIsStable(t *testing.T) {
	var hashes []string
	for i := 0; i < 2; i++ {
		out, _, err := executeCommand(t, "--schema", testSchema, "--format", "json", "compile", "testdata/queries/adults.yaml")
		require.NoError(t, err)
		var result CompileResult
		decodeResponse(t, out, &result)
		hashes = append(hashes, result.Hash)
	}
	assert.Equal(t, hashes[0], hashes[1])
}

func TestCompile_OutputFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out", "adults.json")

	out, _, err := executeCommand(t, "--schema", testSchema, "compile", "-o", target, "testdata/queries/adults.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	var result CompileResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "(age >= %@) && (age < %@)", result.Predicate)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantText string
	}{
		{
			name:     "missing query file",
			args:     []string{"--schema", testSchema, "compile", "testdata/queries/nope.yaml"},
			wantCode: ErrCodeNotFound,
			wantText: "file not found",
		},
		{
			name:     "malformed document",
			args:     []string{"--schema", testSchema, "compile", "testdata/queries/malformed.yaml"},
			wantCode: ErrCodeInvalidInput,
			wantText: "malformed.yaml",
		},
		{
			name:     "unknown property",
			args:     []string{"--schema", testSchema, "compile", "testdata/queries/unknown-property.yaml"},
			wantCode: "UNKNOWN_PROPERTY",
			wantText: "path=colour",
		},
		{
			name:     "missing schema",
			args:     []string{"--schema", "testdata/schema/nope.cue", "compile", "testdata/queries/adults.yaml"},
			wantCode: ErrCodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--format", "json"}, tt.args...)
			out, _, err := executeCommand(t, args...)

			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			resp := decodeResponse(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.wantText)
		})
	}
}

func TestCompile_ReportsEveryViolation(t *testing.T) {
	out, _, err := executeCommand(t, "--schema", testSchema, "compile", "testdata/queries/ordered-string.yaml")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, "requires an ordered type")
	assert.Contains(t, out, "UNSUPPORTED_NEGATION")
}

func TestCompile_RequiresOneArgument(t *testing.T) {
	_, _, err := executeCommand(t, "--schema", testSchema, "compile")
	require.Error(t, err)
}
