// Package harness runs elaboration scenarios against declarative module
// libraries.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: mux_select
//	description: "A two-way mux explores both outcomes"
//	specs:
//	  - ../specs/mux.cue
//	module: mux
//	max_invocations: 16   # optional
//	max_events: 1024      # optional
//	assertions:
//	  - type: invocations
//	    count: 2
//	  - type: node_count
//	    kind: branch
//	    count: 1
//	  - type: drivers
//	    endpoint: out
//	    count: 2
//	    sources: [a, b]
//
// Spec paths are resolved relative to the scenario file.
//
// # Assertion Types
//
//   - invocations: the module took exactly Count invocations
//   - node_count: the tree holds exactly Count nodes of Kind (branch, switch, assign)
//   - drivers: Endpoint has exactly Count driver entries, with Sources in order if given
//   - error: elaboration (or static validation) failed with Code, and the
//     message contains Message if given
//
// A scenario without an error assertion fails if elaboration fails.
//
// # Run Checks
//
// Every run also elaborates the module a second time and requires an
// identical ir.ModuleHash, and stores the module in an in-memory SQLite
// store and reads it back. Either mismatch fails the scenario.
//
// # Golden Files
//
// Snapshot renders a result as canonical JSON: the tree, driver tables and
// invocation count on success, or the error code on failure. RunSuite
// compares each scenario against golden/<scenario-file>.golden next to the
// scenario file when one exists; RunWithGolden does the same for go tests
// through goldie.
package harness
