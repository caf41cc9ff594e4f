package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hdlreplay/internal/ir"
)

func TestCompileToStdout(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), specsDir)
	require.NoError(t, err)

	var result CompileResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, ir.IRVersion, result.IRVersion)
	require.Len(t, result.Modules, 2)
	assert.Equal(t, "mux", result.Modules[0].Name)
	assert.Equal(t, "top", result.Modules[1].Name)

	when := result.Modules[0].Body[0]
	assert.Equal(t, ir.StmtIf, when.Kind)
	assert.Equal(t, "body.0", when.ID)
	assert.Equal(t, ir.Operand("en"), when.Cond)
}

func TestCompileJSON(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), specsDir)
	require.NoError(t, err)

	var result CompileResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, result.Modules, 2)
}

func TestCompileToFile(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "build", "library.json")
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), specsDir, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 2 module(s)")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var result CompileResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Modules, 2)
}

func TestCompileMalformed(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), malformedDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E101]")
}

func TestCompileMissingDir(t *testing.T) {
	_, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), "testdata/absent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E005")
}
