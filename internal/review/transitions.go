package review

import (
	"errors"
	"fmt"
	"time"

	"rollcall/internal/matching"
)

var (
	// ErrInvalidTransition is returned when an action is not allowed from the
	// current association status.
	ErrInvalidTransition = errors.New("invalid association transition")
	// ErrDoubtCandidates is returned when a doubt does not name two distinct
	// registrations.
	ErrDoubtCandidates = errors.New("doubt requires two distinct registrations")
)

func transitionError(action string, from Association) error {
	return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, statusOf(from))
}

func statusOf(a Association) Status {
	if a == nil {
		return StatusPending
	}
	return a.Status()
}

// Confirm accepts the system proposal.
func Confirm(a Association, at time.Time) (Association, error) {
	m, ok := ProposedMatch(a)
	if !ok {
		return a, transitionError("confirm", a)
	}
	return Confirmed{Candidate: m.Candidate, ConfirmedAt: at}, nil
}

// Select confirms an operator-chosen registration, overriding any proposal.
func Select(a Association, c matching.Candidate, at time.Time) (Association, error) {
	if statusOf(a) == StatusConfirmed {
		return a, transitionError("select a registration", a)
	}
	manual := true
	if m, ok := ProposedMatch(a); ok && m.Candidate.ID == c.ID {
		manual = false
	}
	return Confirmed{Candidate: c, Manual: manual, ConfirmedAt: at}, nil
}

// MarkNotFound records that no registration exists.
func MarkNotFound(a Association, at time.Time) (Association, error) {
	switch statusOf(a) {
	case StatusConfirmed, StatusDoubt:
		return a, transitionError("mark not found", a)
	}
	return NotFound{MarkedAt: at}, nil
}

// MarkDoubt records two competing registrations.
func MarkDoubt(a Association, first, second matching.Candidate, at time.Time) (Association, error) {
	switch statusOf(a) {
	case StatusConfirmed, StatusDoubt:
		return a, transitionError("mark doubt", a)
	}
	if first.ID == "" || second.ID == "" || first.ID == second.ID {
		return a, ErrDoubtCandidates
	}
	return Doubt{First: first, Second: second, MarkedAt: at}, nil
}

// Reset returns a NotFound or Doubt association to Pending.
func Reset(a Association) (Association, error) {
	switch statusOf(a) {
	case StatusNotFound, StatusDoubt:
		return Pending{}, nil
	}
	return a, transitionError("reset", a)
}

// canRematch reports whether a fresh system proposal may replace a.
func canRematch(a Association) bool {
	switch statusOf(a) {
	case StatusPending, StatusAutoMatched, StatusSuggested:
		return true
	default:
		return false
	}
}
