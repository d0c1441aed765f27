// Package mutator runs state-changing operations one at a time.
//
// Every mutation is queued and executed by a single writer goroutine in
// FIFO order, so writes against the budget file never interleave. A
// mutation that starts another mutation runs the inner one inline rather
// than queueing behind itself.
//
// Each mutation carries an undo setting. When undo is enabled, the change
// messages it sends are grouped and appended to the runner's undo log;
// when disabled, nothing is recorded.
package mutator
