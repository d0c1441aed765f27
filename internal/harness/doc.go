// Package harness provides conformance testing for the operation facade.
//
// The harness runs YAML scenarios against a fresh data directory, calling
// operations by name exactly as connected clients do, and records for every
// step its error and the events each client received.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	clients: 2
//	setup:
//	  - op: create-budget
//	    args: { budgetName: Test, avoidUpload: true }
//	steps:
//	  - op: payee-create
//	    args: { name: Grocer }
//	    save: grocer
//	  - op: payee-delete
//	    args: { id: $grocer }
//	  - op: batch-end
//	    expect:
//	      error: "no batch started"
//	      code: PRECONDITION
//	assertions:
//	  - type: event_contains
//	    client: b
//	    event: sync-event
//	    tables: [payees]
//	  - type: final_state
//	    table: payees
//	    where: { name: Grocer }
//	    expect: { tombstone: 1 }
//
// # Assertion Types
//
//   - event_contains: Verifies a client received an event, optionally a
//     sync-event naming exactly the given tables
//   - event_order: Verifies a client received events in the given order
//   - event_count: Verifies a client received an event exactly N times
//   - final_state: Queries a table of the open budget and verifies values
//
// # Deterministic Testing
//
// Budgets are created with a hybrid logical clock frozen at testutil.Epoch,
// node testutil.Node, and sequential ids, so a scenario produces the same
// trace on every run. RunWithGolden compares that trace against
// testdata/golden/<name>.golden; operation results are left out of golden
// files and checked with expect clauses instead.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/batch.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
