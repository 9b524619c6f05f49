package review

import (
	"time"

	"rollcall/internal/matching"
)

// Status names an association variant.
type Status string

const (
	StatusPending     Status = "pending"
	StatusAutoMatched Status = "auto_matched"
	StatusSuggested   Status = "suggested"
	StatusConfirmed   Status = "confirmed"
	StatusNotFound    Status = "not_found"
	StatusDoubt       Status = "doubt"
)

var allStatuses = []Status{
	StatusPending,
	StatusAutoMatched,
	StatusSuggested,
	StatusConfirmed,
	StatusNotFound,
	StatusDoubt,
}

// AllStatuses returns the ordered list of association statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// Blocking reports whether a participant in this status prevents the run
// from advancing to confirmation.
func (s Status) Blocking() bool {
	switch s {
	case StatusPending, StatusAutoMatched, StatusSuggested:
		return true
	default:
		return false
	}
}

// Association is the link state between a participant and a registration.
type Association interface {
	Status() Status
	isAssociation()
}

// Pending has no proposal.
type Pending struct{}

// AutoMatched is a high-confidence system proposal.
type AutoMatched struct {
	Match matching.Match
}

// Suggested is a medium-confidence system proposal.
type Suggested struct {
	Match matching.Match
}

// Confirmed is an operator-finalized link.
type Confirmed struct {
	Candidate matching.Candidate
	// Manual is set when the operator picked the candidate instead of
	// accepting the system proposal.
	Manual      bool
	ConfirmedAt time.Time
}

// NotFound records that no registration exists for the participant.
type NotFound struct {
	MarkedAt time.Time
}

// Doubt records two plausible registrations the operator could not decide
// between.
type Doubt struct {
	First    matching.Candidate
	Second   matching.Candidate
	MarkedAt time.Time
}

func (Pending) Status() Status     { return StatusPending }
func (AutoMatched) Status() Status { return StatusAutoMatched }
func (Suggested) Status() Status   { return StatusSuggested }
func (Confirmed) Status() Status   { return StatusConfirmed }
func (NotFound) Status() Status    { return StatusNotFound }
func (Doubt) Status() Status       { return StatusDoubt }

func (Pending) isAssociation()     {}
func (AutoMatched) isAssociation() {}
func (Suggested) isAssociation()   {}
func (Confirmed) isAssociation()   {}
func (NotFound) isAssociation()    {}
func (Doubt) isAssociation()       {}

// FromAssignment converts a batch matching outcome into an association.
func FromAssignment(a matching.Assignment) Association {
	if a.Match == nil {
		return Pending{}
	}
	switch a.Status {
	case matching.StatusAutoMatched:
		return AutoMatched{Match: *a.Match}
	case matching.StatusSuggested:
		return Suggested{Match: *a.Match}
	default:
		return Pending{}
	}
}

// fromMatch builds the system proposal implied by a fresh match.
func fromMatch(m matching.Match) Association {
	switch m.Status() {
	case matching.StatusAutoMatched:
		return AutoMatched{Match: m}
	case matching.StatusSuggested:
		return Suggested{Match: m}
	default:
		return Pending{}
	}
}

// ClaimedCandidate returns the registration an association holds, if any.
// Pending, NotFound, and Doubt hold none.
func ClaimedCandidate(a Association) (matching.Candidate, bool) {
	switch v := a.(type) {
	case AutoMatched:
		return v.Match.Candidate, true
	case Suggested:
		return v.Match.Candidate, true
	case Confirmed:
		return v.Candidate, true
	default:
		return matching.Candidate{}, false
	}
}

// ProposedMatch returns the system proposal carried by AutoMatched and
// Suggested associations.
func ProposedMatch(a Association) (matching.Match, bool) {
	switch v := a.(type) {
	case AutoMatched:
		return v.Match, true
	case Suggested:
		return v.Match, true
	default:
		return matching.Match{}, false
	}
}
