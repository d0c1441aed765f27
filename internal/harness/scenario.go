package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios drive the operation facade the way connected clients do and
// assert on what each client was told and on the final stored state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clients is the number of connected clients, named a, b, c and so on.
	// Zero means DefaultClients. Sync notifications only go out when more
	// than one client is connected.
	Clients int `yaml:"clients,omitempty"`

	// Setup runs before the traced steps. Setup steps must succeed and
	// the events they produce are discarded.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps are the traced operations.
	Steps []Step `yaml:"steps"`

	// Assertions validate the event trace and final state.
	// Supported types: event_contains, event_order, event_count, final_state
	Assertions []Assertion `yaml:"assertions"`
}

// DefaultClients is the client count of a scenario that does not set one.
const DefaultClients = 2

// Step is one operation call.
type Step struct {
	// Op is the operation name (e.g., "payee-create").
	Op string `yaml:"op"`

	// Args are the operation arguments. String values of the form $name
	// are replaced by a value saved by an earlier step.
	Args map[string]any `yaml:"args,omitempty"`

	// Save stores the step's result under a name for later steps: a
	// string result as-is, an object result by its id field.
	Save string `yaml:"save,omitempty"`

	// Expect specifies the expected outcome. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is a substring the step's error must contain. When set the
	// step must fail.
	Error string `yaml:"error,omitempty"`

	// Code is the expected error code (PRECONDITION or DELEGATED).
	Code string `yaml:"code,omitempty"`

	// Result is matched against the operation's JSON result: objects by
	// subset, lists by containment, scalars exactly.
	Result any `yaml:"result,omitempty"`
}

// fails reports whether the clause expects the step to fail.
func (e *ExpectClause) fails() bool {
	return e != nil && (e.Error != "" || e.Code != "")
}

// Assertion validates the event trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "event_contains": Check a client received an event
	// - "event_order": Check a client received events in order
	// - "event_count": Check a client received an event exactly N times
	// - "final_state": Query a table of the open budget and verify values
	Type string `yaml:"type"`

	// Client names the client whose events are checked. Empty means a.
	Client string `yaml:"client,omitempty"`

	// Event is the event name (used by event_contains, event_count).
	Event string `yaml:"event,omitempty"`

	// Tables are the exact datasets a sync-event must name (used by
	// event_contains). Nil matches any.
	Tables []string `yaml:"tables,omitempty"`

	// Events is the expected event order (used by event_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of occurrences (used by event_count).
	Count int `yaml:"count,omitempty"`

	// Table is the state table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEventContains = "event_contains"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Clients < 0 {
		return fmt.Errorf("clients must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Op == "" {
			return fmt.Errorf("setup[%d]: op is required", i)
		}
		if step.Expect.fails() {
			return fmt.Errorf("setup[%d]: setup steps cannot expect an error", i)
		}
	}
	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if step.Expect.fails() && step.Save != "" {
			return fmt.Errorf("steps[%d]: a failing step has nothing to save", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s.clients()); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, clients int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Client != "" && !validClient(a.Client, clients) {
		return fmt.Errorf("assertions[%d]: unknown client %q", index, a.Client)
	}

	switch a.Type {
	case AssertEventContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_contains", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func (s *Scenario) clients() int {
	if s.Clients == 0 {
		return DefaultClients
	}
	return s.Clients
}

// clientName names the i-th client.
func clientName(i int) string {
	return string(rune('a' + i))
}

func validClient(name string, clients int) bool {
	for i := 0; i < clients; i++ {
		if clientName(i) == name {
			return true
		}
	}
	return false
}
