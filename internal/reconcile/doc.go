// Package reconcile drives one upload through parsing, consolidation,
// presence analysis, and identity matching, producing a review workspace.
//
// A run is a single synchronous unit of work. Malformed input, empty input,
// and invalid window configuration abort the run before any workspace
// exists.
package reconcile
