// Package attendance turns raw provider sessions into per-person timelines and
// scores them against a training's activity window.
//
// Consolidation groups sessions by the exact trimmed display name. Two people
// whose devices report "iPhone" stay distinct unless an operator merges them;
// the folded name is only used to test operator exclusion terms. Presence
// analysis clips each session to the activity window, sums the overlap, and
// derives the approval flags. A manual override is tracked separately from
// the computed flags so the raw numbers stay auditable.
package attendance
