// Package api defines wire-format types and converters shared by the CLI and
// the read-only HTTP surface, plus the gin router serving them.
//
// # Key Types
//
// PendingEntry: transport representation of an unresolved participant
// (NotFound or Doubt) waiting in the registration store.
//
// WorkspaceItem: one stored review run in listings.
//
// WorkspaceDetail: summary counts plus one ParticipantView per participant.
//
// # Routes
//
//	GET /api/health
//	GET /api/pending?training=<id>&status=<not_found|doubt>
//	GET /api/workspaces
//	GET /api/workspaces/:id
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Association statuses are exposed as their
// snake_case string values. Timestamps use RFC3339 with milliseconds.
package api
