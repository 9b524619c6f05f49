package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// PendingEntry describes an unresolved participant in a transport-friendly format.
type PendingEntry struct {
	ID                int64  `json:"id"`
	RunID             string `json:"runId,omitempty"`
	TrainingID        string `json:"trainingId"`
	ParticipantName   string `json:"participantName"`
	Email             string `json:"email,omitempty"`
	Status            string `json:"status"`
	FirstCandidateID  string `json:"firstCandidateId,omitempty"`
	SecondCandidateID string `json:"secondCandidateId,omitempty"`
	MarkedAt          string `json:"markedAt,omitempty"`
	UpdatedAt         string `json:"updatedAt,omitempty"`
}

// PendingListResponse wraps the pending queue.
type PendingListResponse struct {
	Items []PendingEntry `json:"items"`
}

// WorkspaceItem summarizes a stored review run.
type WorkspaceItem struct {
	ID         string `json:"id"`
	TrainingID string `json:"trainingId"`
	FileName   string `json:"fileName,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
	Ready      bool   `json:"ready"`
}

// WorkspaceListResponse wraps stored runs, newest first.
type WorkspaceListResponse struct {
	Items []WorkspaceItem `json:"items"`
}

// Summary mirrors the run counters.
type Summary struct {
	Participants    int  `json:"participants"`
	Active          int  `json:"active"`
	Excluded        int  `json:"excluded"`
	Removed         int  `json:"removed"`
	Approved        int  `json:"approved"`
	Rejected        int  `json:"rejected"`
	ManualOverrides int  `json:"manualOverrides"`
	AutoMatched     int  `json:"autoMatched"`
	Suggested       int  `json:"suggested"`
	Pending         int  `json:"pending"`
	Confirmed       int  `json:"confirmed"`
	NotFound        int  `json:"notFound"`
	Doubt           int  `json:"doubt"`
	Ready           bool `json:"ready"`
}

// ParticipantView flattens one participant with its analysis and association.
type ParticipantView struct {
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Sessions       int    `json:"sessions"`
	Excluded       bool   `json:"excluded,omitempty"`
	Removed        bool   `json:"removed,omitempty"`
	MergedInto     string `json:"mergedInto,omitempty"`
	TotalMinutes   int    `json:"totalMinutes"`
	WindowMinutes  int    `json:"windowMinutes"`
	WindowPercent  int    `json:"windowPercent"`
	Approved       bool   `json:"approved"`
	ManualOverride bool   `json:"manualOverride,omitempty"`
	Status         string `json:"status"`
	CandidateID    string `json:"candidateId,omitempty"`
	CandidateName  string `json:"candidateName,omitempty"`
	SecondID       string `json:"secondCandidateId,omitempty"`
	SecondName     string `json:"secondCandidateName,omitempty"`
	Score          int    `json:"score,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Manual         bool   `json:"manual,omitempty"`
}

// WorkspaceDetail is the full review state of one run.
type WorkspaceDetail struct {
	WorkspaceItem
	Window       WindowView        `json:"window"`
	Summary      Summary           `json:"summary"`
	Participants []ParticipantView `json:"participants"`
}

// WindowView describes the configured activity window.
type WindowView struct {
	LiveStart     string `json:"liveStart"`
	LiveEnd       string `json:"liveEnd,omitempty"`
	WindowStart   string `json:"windowStart"`
	WindowEnd     string `json:"windowEnd"`
	MinMinutes    int    `json:"minMinutes"`
	MinPercentage int    `json:"minPercentage"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
