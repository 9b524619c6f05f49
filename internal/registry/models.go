package registry

import (
	"fmt"
	"strings"
	"time"

	"rollcall/internal/matching"
)

// Registration is one enrolment in a training session.
type Registration struct {
	ID            string
	TrainingID    string
	Name          string
	Phone         string
	City          string
	Email         string
	RecruiterCode string
	CreatedAt     time.Time
	// Attendance is nil until an outcome has been persisted.
	Attendance *Attendance
}

// Candidate projects the registration for matching.
func (r Registration) Candidate() matching.Candidate {
	return matching.Candidate{
		ID:            r.ID,
		Name:          r.Name,
		Phone:         r.Phone,
		City:          r.City,
		Email:         r.Email,
		RecruiterCode: r.RecruiterCode,
	}
}

// Attendance is the persisted attendance state of a registration.
type Attendance struct {
	Validated       bool
	Approved        bool
	ManualOverride  bool
	ParticipantName string
	TotalMinutes    int
	WindowMinutes   int
	WindowPercent   int
	RunID           string
	ValidatedAt     time.Time
}

// AttendanceOutcome is written for each confirmed participant.
type AttendanceOutcome struct {
	RegistrationID  string
	ParticipantName string
	Approved        bool
	ManualOverride  bool
	TotalMinutes    int
	WindowMinutes   int
	WindowPercent   int
	RunID           string
	ValidatedAt     time.Time
}

// UnresolvedStatus names why a participant could not be linked.
type UnresolvedStatus string

const (
	UnresolvedNotFound UnresolvedStatus = "not_found"
	UnresolvedDoubt    UnresolvedStatus = "doubt"
)

var allUnresolvedStatuses = []UnresolvedStatus{UnresolvedNotFound, UnresolvedDoubt}

// ParseUnresolvedStatus converts a string into an UnresolvedStatus.
func ParseUnresolvedStatus(value string) (UnresolvedStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, s := range allUnresolvedStatuses {
		if string(s) == normalized {
			return s, true
		}
	}
	return "", false
}

// UnresolvedRecord is a participant awaiting manual resolution.
type UnresolvedRecord struct {
	ID                int64
	RunID             string
	TrainingID        string
	ParticipantName   string
	Email             string
	Status            UnresolvedStatus
	FirstCandidateID  string
	SecondCandidateID string
	MarkedAt          time.Time
	UpdatedAt         time.Time
}

func (r UnresolvedRecord) validate() error {
	if strings.TrimSpace(r.TrainingID) == "" || strings.TrimSpace(r.ParticipantName) == "" {
		return fmt.Errorf("unresolved record needs training id and participant name")
	}
	switch r.Status {
	case UnresolvedNotFound:
		if r.FirstCandidateID != "" || r.SecondCandidateID != "" {
			return fmt.Errorf("not_found record for %q carries candidates", r.ParticipantName)
		}
	case UnresolvedDoubt:
		if r.FirstCandidateID == "" || r.SecondCandidateID == "" || r.FirstCandidateID == r.SecondCandidateID {
			return fmt.Errorf("doubt record for %q needs two distinct candidates", r.ParticipantName)
		}
	default:
		return fmt.Errorf("unknown unresolved status %q", r.Status)
	}
	return nil
}

// UnresolvedFilter narrows ListUnresolved. Zero values match everything.
type UnresolvedFilter struct {
	TrainingID string
	Status     UnresolvedStatus
}
