// Package sessionlog parses the per-session attendance export produced by the
// videoconference provider.
//
// The export is comma-delimited text with RFC 4180 quoting. Its header row is
// localized, so column names are folded and looked up in a synonym table that
// maps English, Portuguese, and Spanish labels onto canonical fields. Rows
// with an empty name or an unparseable join/leave timestamp are skipped and
// counted; a missing name column or a file with no usable rows aborts the
// parse.
package sessionlog
