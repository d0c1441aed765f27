package harness

// StepTrace records what one scenario step did: the operation called, how
// it failed if it did, and the events each client received while it ran.
type StepTrace struct {
	Step   int                      `json:"step"`
	Op     string                   `json:"op"`
	Code   string                   `json:"code,omitempty"`
	Error  string                   `json:"error,omitempty"`
	Events map[string][]EventRecord `json:"events,omitempty"`

	// Result is the operation's result as JSON-decoded values. It feeds
	// expect clauses and saved variables and is left out of golden files.
	Result any `json:"-"`
}

// EventRecord is one event a client received. Tables is set for
// sync-event notifications that named changed datasets.
type EventRecord struct {
	Name   string   `json:"name"`
	Tables []string `json:"tables,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success: every expect clause and
	// assertion held.
	Pass bool `json:"pass"`

	// Trace has one entry per scenario step, in order.
	Trace []StepTrace `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step to the trace.
func (r *Result) AddStep(step StepTrace) {
	r.Trace = append(r.Trace, step)
}

// EventsFor returns every event client received, in order.
func (r *Result) EventsFor(client string) []EventRecord {
	var out []EventRecord
	for _, step := range r.Trace {
		out = append(out, step.Events[client]...)
	}
	return out
}
