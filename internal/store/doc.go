// Package store provides SQLite-backed durable storage for attempt reports.
//
// The store is an append-only attempt log: one row per graded run, keyed
// by the report's content-addressed id so writing the same report twice is
// a no-op. It is an outbound sink for sessions; the grading core never
// reads from it.
//
// # Ordering
//
// Queries order by session_id, attempt and then id COLLATE BINARY. Attempt
// numbers come from the session's logical clock, never wall time, so the
// order is the order attempts were made.
//
// # Connections
//
// Every connection the driver opens runs in WAL mode with synchronous=NORMAL,
// a 5 second busy timeout and foreign keys on. The pool holds one connection.
//
// # Versions
//
// PRAGMA user_version records the layout a log was created with. Open
// refuses a log stamped with a newer version than SchemaVersion.
package store
