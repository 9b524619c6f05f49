// Package registry is the boundary to the external registration store.
//
// Two backends implement Store: SQLiteStore for single-operator use and
// PostgresStore for a shared server. Registrations are read as matching
// candidates and are never mutated by matching. Attendance outcomes are
// upserted per registration id, so re-confirming overwrites earlier values.
// Participants marked not-found or doubtful are kept in a separate
// unresolved table for a later resolution flow.
//
// The SQLite schema lives in schema.sql; bump schemaVersion when it changes.
// Existing databases with another version are rejected rather than migrated.
package registry
