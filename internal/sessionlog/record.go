package sessionlog

import "time"

// Record is one join/leave session as exported by the provider.
type Record struct {
	Name        string
	Email       string
	JoinTime    time.Time
	LeaveTime   time.Time
	Duration    int
	Guest       bool
	WaitingRoom bool
	// Line is the 1-based physical row number in the source file.
	Line int
}

// Result carries parsed records plus diagnostics about skipped rows.
type Result struct {
	Records []Record
	// DataRows counts non-blank rows after the header.
	DataRows int
	// Dropped counts rows skipped for an empty name or bad timestamp.
	Dropped int
	// DerivedDurations counts rows whose duration cell was unusable and was
	// recomputed from the timestamps.
	DerivedDurations int
	Columns          []Field
}
