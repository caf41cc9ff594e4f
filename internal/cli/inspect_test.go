package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectList(t *testing.T) {
	dbPath := storeTop(t)

	out, err := execute(t, NewInspectCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Stored modules: 2 (2 instance link(s))")
	assert.Contains(t, out, "mux")
	assert.Contains(t, out, "top")
}

func TestInspectListJSON(t *testing.T) {
	dbPath := storeTop(t)

	out, err := execute(t, NewInspectCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--module", "mux")
	require.NoError(t, err)

	var result InspectListResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, result.Modules, 1)
	assert.Equal(t, "mux", result.Modules[0].Name)
	assert.Equal(t, 2, result.Modules[0].Invocations)
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, 2, result.Instances)
}

func TestInspectLatest(t *testing.T) {
	dbPath := storeTop(t)

	out, err := execute(t, NewInspectCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--module", "top", "--latest")
	require.NoError(t, err)
	assert.Contains(t, out, "module top\n  port y[8]\n")
	assert.Contains(t, out, "Instance u0: mux")
	assert.Contains(t, out, "Stored as: ")
}

func TestInspectByIDJSON(t *testing.T) {
	dbPath := storeTop(t)

	listOut, err := execute(t, NewInspectCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--module", "top")
	require.NoError(t, err)
	var list InspectListResult
	decodeResponse(t, listOut, &list)
	require.Len(t, list.Modules, 1)
	id := list.Modules[0].ID

	out, err := execute(t, NewInspectCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--id", id)
	require.NoError(t, err)

	var result InspectShowResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, id, resp.ModuleID)
	assert.Equal(t, "top", result.Module)
	assert.Equal(t, list.Modules[0].TreeHash, result.TreeHash)
	assert.True(t, result.Stored)
	assert.Len(t, result.Instances, 2)
}

func TestInspectEndpoint(t *testing.T) {
	dbPath := storeTop(t)

	out, err := execute(t, NewInspectCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--module", "mux", "--latest", "--endpoint", "out")
	require.NoError(t, err)
	assert.Contains(t, out, "mux.out: 2 driver(s)")
	assert.Contains(t, out, "  out[0:8) = a  when body.0=true\n")
	assert.Contains(t, out, "  out[0:8) = b  when body.0=false\n")
}

func TestInspectUnknownEndpoint(t *testing.T) {
	dbPath := storeTop(t)

	_, err := execute(t, NewInspectCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--module", "mux", "--latest", "--endpoint", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown endpoint nope")
}

func TestInspectNotFound(t *testing.T) {
	dbPath := storeTop(t)

	out, err := execute(t, NewInspectCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--id", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]: module not found")
}

func TestInspectFlagErrors(t *testing.T) {
	_, err := execute(t, NewInspectCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--db is required")

	dbPath := filepath.Join(t.TempDir(), "hdl.db")
	_, err = execute(t, NewInspectCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--latest requires --module")
}

func TestInspectEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hdl.db")
	out, err := execute(t, NewInspectCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No modules found in database.")
}
