package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// encoding/json sorts map keys, so equal traces serialize identically.
type TraceSnapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Clients      int         `json:"clients"`
	Trace        []StepTrace `json:"trace"`
}

// marshalSnapshot renders a snapshot as indented JSON with a trailing
// newline.
func marshalSnapshot(s TraceSnapshot) ([]byte, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := assertGolden(t, scenario.Name, scenario.clients(), result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, clients int, result *Result) error {
	t.Helper()
	return assertGolden(t, scenarioName, clients, result)
}

func assertGolden(t *testing.T, scenarioName string, clients int, result *Result) error {
	t.Helper()

	traceJSON, err := marshalSnapshot(TraceSnapshot{
		ScenarioName: scenarioName,
		Clients:      clients,
		Trace:        result.Trace,
	})
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
