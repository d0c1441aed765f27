// Package store provides SQLite persistence for a single budget file.
//
// A budget file holds the entity tables, the zero-based budget tables, and
// messages_crdt, the append-only change log. Every mutation reaches the
// tables through ApplyMessages so that the log and the tables stay in step.
//
// The store uses a single connection. Writes are serialised either by a
// short-lived transaction per call or, while an import is running, by one
// long-lived transaction opened with AsyncTransaction that every caller
// joins until it commits.
package store
