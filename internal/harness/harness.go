package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/roach88/budgetsync/internal/api"
	"github.com/roach88/budgetsync/internal/budget"
	"github.com/roach88/budgetsync/internal/clock"
	"github.com/roach88/budgetsync/internal/cloud"
	"github.com/roach88/budgetsync/internal/connection"
	"github.com/roach88/budgetsync/internal/data"
	"github.com/roach88/budgetsync/internal/sheet"
	"github.com/roach88/budgetsync/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios against a fresh data directory with a clock frozen at
// testutil.Epoch and sequential ids, so identical scenarios produce
// identical traces.
type Harness struct {
	srv     *api.Server
	budgets *budget.Manager
	conns   []*connection.ChannelConn
	vars    map[string]string
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Create a throwaway data directory and connect the scenario's clients
// 2. Execute setup steps, discarding their events
// 3. Execute steps, recording errors and the events each client received
// 4. Evaluate assertions against the trace and the open budget
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "budgetsync-harness-")
	if err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	defer os.RemoveAll(dir)

	h := newHarness(dir, scenario.clients())
	ctx := context.Background()
	defer h.srv.Shutdown(ctx)

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	actx := &AssertionContext{
		Budgets: h.budgets,
		Ctx:     ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func newHarness(dir string, clients int) *Harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wall := testutil.NewFrozenWall(testutil.Epoch)

	budgets := budget.NewManager(dir,
		budget.WithLogger(logger),
		budget.WithUploader(cloud.NopUploader{}),
		budget.WithIDSuffix(testutil.NewSequentialIDs("b").NewID),
		budget.WithClockOptions(clock.WithNode(testutil.Node), clock.WithWallClock(wall.Now)),
		budget.WithDataOptions(data.WithIDGenerator(testutil.NewSequentialIDs("id")), data.WithNow(wall.Now)),
		budget.WithSheetOptions(sheet.WithNow(wall.Now)),
	)
	hub := connection.NewHub(connection.WithLogger(logger))

	h := &Harness{
		budgets: budgets,
		vars:    make(map[string]string),
		logger:  logger,
	}
	for i := 0; i < clients; i++ {
		c := connection.NewChannelConn(clientName(i), 64)
		hub.Connect(c)
		h.conns = append(h.conns, c)
	}
	h.srv = api.NewServer(budgets, hub, api.WithLogger(logger))
	return h
}

// executeSetup runs setup steps. Each must succeed.
func (h *Harness) executeSetup(ctx context.Context, setup []Step) error {
	for i, step := range setup {
		res, err := h.call(ctx, step)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Op, err)
		}
		if step.Save != "" {
			if err := h.save(step.Save, res); err != nil {
				return fmt.Errorf("setup step %d (%s): %w", i, step.Op, err)
			}
		}
		h.logger.Info("setup step completed", "step", i, "op", step.Op)
	}
	h.drain()
	return nil
}

// executeSteps runs the traced steps and checks their expect clauses.
// A step whose arguments cannot be resolved aborts the run.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		args, err := h.resolve(step.Args)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		res, callErr := h.callResolved(ctx, step.Op, args)

		trace := StepTrace{
			Step:   i,
			Op:     step.Op,
			Events: h.drain(),
			Result: res,
		}
		if callErr != nil {
			trace.Error = callErr.Error()
			trace.Code = errorCode(callErr)
		}
		result.AddStep(trace)

		if msg := checkExpect(step, trace, callErr); msg != "" {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i, step.Op, msg))
		}
		if callErr == nil && step.Save != "" {
			if err := h.save(step.Save, res); err != nil {
				result.AddError(fmt.Sprintf("step %d (%s): %v", i, step.Op, err))
			}
		}

		h.logger.Info("step completed", "step", i, "op", step.Op, "error", callErr)
	}
	return nil
}

func (h *Harness) call(ctx context.Context, step Step) (any, error) {
	args, err := h.resolve(step.Args)
	if err != nil {
		return nil, err
	}
	return h.callResolved(ctx, step.Op, args)
}

// callResolved runs an operation and returns its result as JSON-decoded
// values.
func (h *Harness) callResolved(ctx context.Context, op string, args map[string]any) (any, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	res, err := h.srv.Call(ctx, op, raw)
	if err != nil {
		return nil, err
	}
	return normalize(res)
}

// drain collects the events each client received since the last drain.
// Clients that received nothing are left out.
func (h *Harness) drain() map[string][]EventRecord {
	var out map[string][]EventRecord
	for _, c := range h.conns {
		evs := c.Drain()
		if len(evs) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string][]EventRecord)
		}
		for _, ev := range evs {
			rec := EventRecord{Name: ev.Name}
			if se, ok := ev.Payload.(api.SyncEvent); ok {
				rec.Tables = se.Tables
			}
			out[c.ID()] = append(out[c.ID()], rec)
		}
	}
	return out
}

// resolve replaces $name strings in args with saved values.
func (h *Harness) resolve(args map[string]any) (map[string]any, error) {
	if args == nil {
		return nil, nil
	}
	out, err := h.resolveValue(args)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func (h *Harness) resolveValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		name, ok := strings.CutPrefix(val, "$")
		if !ok {
			return val, nil
		}
		saved, ok := h.vars[name]
		if !ok {
			return nil, fmt.Errorf("unknown variable $%s", name)
		}
		return saved, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			r, err := h.resolveValue(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			r, err := h.resolveValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	default:
		return val, nil
	}
}

// save stores a string result, or an object result's id, under name.
func (h *Harness) save(name string, res any) error {
	switch v := res.(type) {
	case string:
		h.vars[name] = v
		return nil
	case map[string]any:
		if id, ok := v["id"].(string); ok {
			h.vars[name] = id
			return nil
		}
	}
	return fmt.Errorf("cannot save result of type %T as $%s", res, name)
}

// checkExpect returns a description of how the step's outcome differs
// from its expect clause, or "" when it matches.
func checkExpect(step Step, trace StepTrace, err error) string {
	exp := step.Expect
	if exp.fails() {
		if err == nil {
			return fmt.Sprintf("expected error %q, got success", exp.Error)
		}
		if exp.Error != "" && !strings.Contains(trace.Error, exp.Error) {
			return fmt.Sprintf("expected error containing %q, got %q", exp.Error, trace.Error)
		}
		if exp.Code != "" && exp.Code != trace.Code {
			return fmt.Sprintf("expected error code %s, got %q", exp.Code, trace.Code)
		}
		return ""
	}
	if err != nil {
		return fmt.Sprintf("unexpected error: %v", err)
	}
	if exp == nil || exp.Result == nil {
		return ""
	}
	want, nerr := normalize(exp.Result)
	if nerr != nil {
		return fmt.Sprintf("invalid expected result: %v", nerr)
	}
	if !matchValue(want, trace.Result) {
		return fmt.Sprintf("result %v does not match expected %v", trace.Result, want)
	}
	return ""
}

// normalize round-trips v through JSON so results and expectations compare
// as the same types.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return out, nil
}

// matchValue reports whether actual satisfies expected: objects by subset,
// lists by containment of every expected element, scalars exactly.
func matchValue(expected, actual any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			if !matchValue(v, act[k]) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return false
		}
		for _, want := range exp {
			found := false
			for _, got := range act {
				if matchValue(want, got) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(expected, actual)
	}
}

func errorCode(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return string(apiErr.Code)
	}
	return ""
}
