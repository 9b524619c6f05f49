// Package workspaces persists review workspaces between CLI invocations.
//
// Each run is one JSON document named after its run ID. Writes go through a
// temp file and rename, and Update holds an exclusive file lock for the whole
// read-modify-write so two terminals cannot interleave edits to one run.
package workspaces
