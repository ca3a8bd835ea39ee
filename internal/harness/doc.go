// Package harness provides conformance testing for the reconciliation
// protocol.
//
// The harness loads record scenarios, feeds them through a reconciler
// against a fresh display target, and validates the resulting outcome
// trace and final display state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	cell_id: c1
//	steps:
//	  - record:
//	      cell_id: c1
//	      output: "partial"
//	    expect: continue
//	  - records:
//	      - cell_id: c1
//	        id: slot-9
//	        execution_count: 3
//	        outputs: ["a", "b"]
//	    expect: terminal
//	final:
//	  outputs: ["a", "b"]
//	  execution_count: 3
//
// Each step applies either one record (record:) or one snapshot of
// records (records:), exactly as a transport client would hand them to
// the reconciler. The optional expect clause names the outcome the step
// must produce; the optional final block asserts the display state after
// the last step.
//
// # Deterministic Testing
//
// Scenario execution is purely functional: records in, mutations out.
// Identical scenarios produce identical traces across runs, so traces
// are compared against golden snapshots.
package harness
