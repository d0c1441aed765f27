// Package api is the operation surface of a budget file.
//
// Every externally triggered change enters here. A Server checks
// preconditions, maps external shapes to internal ones, and delegates to
// the persistence handlers. Mutating operations run inside the mutation
// envelope:
//
//  1. the call is queued on the single-writer runner with undo disabled
//  2. the budget clock is read before the handler runs
//  3. after the handler succeeds, the change log is asked which datasets
//     were written since that timestamp
//  4. when more than one client is connected, a "sync-event" listing
//     those datasets is pushed to every client
//
// The detected dataset set may include writes from other operations that
// committed in the same window. Clients are told too much, never too
// little.
//
// # Batches
//
// BatchStart opens one held transaction scope that later operations join
// until BatchEnd closes it. Outside import mode the scope buffers change
// messages and applies them together; in import mode it is a raw storage
// transaction. Only one batch may be open.
//
// # Import mode
//
// StartImport replaces the open budget with a fresh one stripped of its
// expense categories and switches change messages to import mode, which
// skips the change log. FinishImport reloads the budget in normal mode and
// uploads it on a best-effort basis. AbortImport deletes it. While
// importing, month arguments are not checked against the budget's range.
//
// # Handlers
//
// Handlers exposes every operation by name with JSON arguments and
// results, for the CLI and the scenario harness.
package api
