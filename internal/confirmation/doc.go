// Package confirmation writes reviewed attendance back to the registration
// store.
//
// Commit requires the workspace to pass its confirmation gate. Every
// Confirmed participant becomes an attendance upsert keyed by registration
// id, and every NotFound or Doubt participant is recorded in the unresolved
// queue. Each write is independent: a failure is logged and counted, and the
// remaining records are still attempted. Writes for the same registration id
// are serialized within the process.
package confirmation
