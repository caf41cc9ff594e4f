package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/hdlreplay/internal/ir"
)

// Snapshot renders the comparable part of a result as canonical JSON: the
// tree, driver tables and invocation count of an elaborated module, or the
// error code of a failed one. Module IDs are excluded.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snap := ir.Object{"scenario": ir.String(scenarioName)}
	if result.Failed() {
		snap["error"] = ir.String(result.ErrorCode)
	} else if m := result.Module; m != nil {
		snap["module"] = ir.String(m.Name)
		snap["invocations"] = ir.Int(m.Invocations)
		snap["tree"] = ir.TreeValue(m.Tree)
		snap["drivers"] = ir.DriversValue(m.Drivers)
		if len(m.Instances) > 0 {
			insts := make(ir.Array, len(m.Instances))
			for i, inst := range m.Instances {
				insts[i] = ir.Object{
					"name":      ir.String(inst.Name),
					"module":    ir.String(inst.Module.Name),
					"tree_hash": ir.String(inst.Module.TreeHash),
				}
			}
			snap["instances"] = insts
		}
	}

	data, err := ir.MarshalCanonical(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", scenarioName, err)
	}
	return data, nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

// GoldenPath returns the golden file path of a scenario file:
// <dir>/golden/<base name>.golden.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// CompareGolden reports whether result matches the golden file at path.
// Trailing newlines in the golden file are ignored.
func CompareGolden(path, scenarioName string, result *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := Snapshot(scenarioName, result)
	if err != nil {
		return false, err
	}
	return bytes.Equal(bytes.TrimRight(want, "\n"), got), nil
}

// UpdateGolden writes result's snapshot to path, creating the directory.
func UpdateGolden(path, scenarioName string, result *Result) error {
	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
