package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines an elaboration test: which library to load, which module
// to elaborate, and what the result must look like.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists paths to CUE module files to load.
	// Paths are relative to the scenario file location.
	Specs []string `yaml:"specs"`

	// Module is the name of the top module to elaborate.
	Module string `yaml:"module"`

	// MaxInvocations and MaxEvents override the controller bounds when
	// positive.
	MaxInvocations int `yaml:"max_invocations,omitempty"`
	MaxEvents      int `yaml:"max_events,omitempty"`

	// Assertions validate the elaboration result.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of the result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected count (used by invocations, node_count, drivers).
	Count int `yaml:"count,omitempty"`

	// Kind is the node kind (used by node_count): branch, switch or assign.
	Kind string `yaml:"kind,omitempty"`

	// Endpoint is the endpoint name (used by drivers).
	Endpoint string `yaml:"endpoint,omitempty"`

	// Sources are the expected driver sources in order (used by drivers).
	// Optional; if empty only the count is checked.
	Sources []string `yaml:"sources,omitempty"`

	// Code is the expected error code (used by error).
	Code string `yaml:"code,omitempty"`

	// Message is a substring the error message must contain (used by error).
	Message string `yaml:"message,omitempty"`
}

// Assertion type constants.
const (
	AssertInvocations = "invocations"
	AssertNodeCount   = "node_count"
	AssertDrivers     = "drivers"
	AssertError       = "error"
)

// Node kinds accepted by node_count.
var nodeKinds = []string{"branch", "switch", "assign"}

// LoadScenario reads a scenario file. Unknown fields are rejected, and spec
// paths are resolved relative to the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath is LoadScenario with relative spec paths resolved
// against basePath instead.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if basePath != "" {
		for i, p := range scenario.Specs {
			if !filepath.IsAbs(p) {
				scenario.Specs[i] = filepath.Join(basePath, p)
			}
		}
	}

	if err := scenario.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func (s *Scenario) validate() error {
	required := []struct {
		missing bool
		msg     string
	}{
		{s.Name == "", "name is required"},
		{s.Description == "", "description is required"},
		{len(s.Specs) == 0, "specs list is required and must be non-empty"},
		{s.Module == "", "module is required"},
		{len(s.Assertions) == 0, "assertions list is required and must be non-empty"},
	}
	for _, r := range required {
		if r.missing {
			return errors.New(r.msg)
		}
	}

	for _, p := range s.Specs {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("spec file not found: %s", p)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertInvocations:
		if a.Count == 0 {
			return fmt.Errorf("assertions[%d]: count must be positive for invocations", index)
		}
	case AssertNodeCount:
		if !slices.Contains(nodeKinds, a.Kind) {
			return fmt.Errorf("assertions[%d]: kind must be one of %v for node_count", index, nodeKinds)
		}
	case AssertDrivers:
		if a.Endpoint == "" {
			return fmt.Errorf("assertions[%d]: endpoint is required for drivers", index)
		}
		if len(a.Sources) > 0 && len(a.Sources) != a.Count {
			return fmt.Errorf("assertions[%d]: sources must list count (%d) entries", index, a.Count)
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
