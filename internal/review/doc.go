// Package review holds the operator-facing state of one reconciliation run.
//
// A Workspace owns the consolidated participants, their presence analyses,
// the candidate registrations, and one Association per participant. An
// Association is a closed sum type: Pending, AutoMatched, Suggested,
// Confirmed, NotFound, or Doubt. Only Doubt carries a second candidate, and
// only the transition functions in this package construct the non-initial
// variants.
//
// Lifecycle:
//
//	Pending ──match──▶ AutoMatched / Suggested ──confirm──▶ Confirmed
//	any but Confirmed ──select(id)──▶ Confirmed
//	any but Confirmed/Doubt ──not-found──▶ NotFound
//	any but Confirmed/Doubt ──doubt(a,b)──▶ Doubt
//	NotFound / Doubt ──reset──▶ Pending
//
// Confirmed is terminal for the run. Registrations claimed by a participant
// are always derived from the current associations rather than tracked in a
// separate set.
package review
