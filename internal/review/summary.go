package review

import (
	"sort"
	"strings"
	"time"

	"rollcall/internal/matching"
	"rollcall/internal/textutil"
)

// ValidationResult aggregates the review state of a run.
type ValidationResult struct {
	RunID           string               `json:"run_id"`
	TrainingID      string               `json:"training_id"`
	Participants    int                  `json:"participants"`
	Active          int                  `json:"active"`
	Excluded        int                  `json:"excluded"`
	Removed         int                  `json:"removed"`
	Approved        int                  `json:"approved"`
	Rejected        int                  `json:"rejected"`
	ManualOverrides int                  `json:"manual_overrides"`
	AutoMatched     int                  `json:"auto_matched"`
	Suggested       int                  `json:"suggested"`
	Pending         int                  `json:"pending"`
	Confirmed       int                  `json:"confirmed"`
	NotFound        int                  `json:"not_found"`
	Doubt           int                  `json:"doubt"`
	Ready           bool                 `json:"ready"`
	Candidates      []matching.Candidate `json:"candidates"`
}

// Summary counts active participants by approval and association status.
// Excluded and removed participants only contribute to their own counters.
func (w *Workspace) Summary() ValidationResult {
	out := ValidationResult{
		RunID:        w.id,
		TrainingID:   w.TrainingID(),
		Participants: len(w.participants),
		Candidates:   w.Candidates(),
	}
	for _, p := range w.participants {
		switch {
		case p.Removed:
			out.Removed++
			continue
		case p.Excluded:
			out.Excluded++
			continue
		}
		out.Active++
		a := w.analyses[p.Name]
		if a.Approved {
			out.Approved++
		} else {
			out.Rejected++
		}
		if a.ManualOverride {
			out.ManualOverrides++
		}
		switch statusOf(w.associations[p.Name]) {
		case StatusAutoMatched:
			out.AutoMatched++
		case StatusSuggested:
			out.Suggested++
		case StatusPending:
			out.Pending++
		case StatusConfirmed:
			out.Confirmed++
		case StatusNotFound:
			out.NotFound++
		case StatusDoubt:
			out.Doubt++
		}
	}
	out.Ready = out.AutoMatched+out.Suggested+out.Pending == 0
	return out
}

// SearchCandidates ranks registrations for manual selection. Candidates whose
// phone, city, email, or recruiter code contain query are listed first with
// score 100; the rest are ordered by name score. An empty query returns
// every candidate in load order.
func (w *Workspace) SearchCandidates(query string) []matching.Match {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]matching.Match, 0, len(w.candidates))
		for _, c := range w.candidates {
			out = append(out, matching.Match{Candidate: c})
		}
		return out
	}
	needle := strings.ToLower(query)
	var direct, rest []matching.Candidate
	for _, c := range w.candidates {
		if fieldContains(c, needle) {
			direct = append(direct, c)
			continue
		}
		rest = append(rest, c)
	}
	out := make([]matching.Match, 0, len(w.candidates))
	for _, c := range direct {
		out = append(out, matching.Match{Candidate: c, Score: matching.ScoreExact, Reason: matching.ReasonFieldMatch})
	}
	return append(out, matching.Rank(query, "", rest)...)
}

func fieldContains(c matching.Candidate, needle string) bool {
	for _, v := range []string{c.Phone, c.City, c.Email, c.RecruiterCode, c.ID} {
		if v != "" && strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	folded := textutil.NormalizeName(needle)
	return folded != "" && strings.Contains(textutil.NormalizeName(c.Name), folded)
}

// Outcome is the attendance record persisted for one confirmed participant.
type Outcome struct {
	RegistrationID  string
	ParticipantName string
	Approved        bool
	ManualOverride  bool
	TotalMinutes    int
	WindowMinutes   int
	WindowPercent   int
}

// Outcomes returns one record per active Confirmed participant in
// first-seen order.
func (w *Workspace) Outcomes() []Outcome {
	var out []Outcome
	for _, p := range w.participants {
		if !p.Active() {
			continue
		}
		c, ok := w.associations[p.Name].(Confirmed)
		if !ok {
			continue
		}
		a := w.analyses[p.Name]
		out = append(out, Outcome{
			RegistrationID:  c.Candidate.ID,
			ParticipantName: p.Name,
			Approved:        a.Approved,
			ManualOverride:  a.ManualOverride,
			TotalMinutes:    a.TotalMinutes,
			WindowMinutes:   a.WindowMinutes,
			WindowPercent:   a.WindowPercent,
		})
	}
	return out
}

// Unresolved is a NotFound or Doubt participant kept for later resolution.
type Unresolved struct {
	ParticipantName string
	Email           string
	Status          Status
	First           *matching.Candidate
	Second          *matching.Candidate
	MarkedAt        time.Time
}

// UnresolvedParticipants returns every active NotFound or Doubt participant.
func (w *Workspace) UnresolvedParticipants() []Unresolved {
	var out []Unresolved
	for _, p := range w.participants {
		if !p.Active() {
			continue
		}
		switch v := w.associations[p.Name].(type) {
		case NotFound:
			out = append(out, Unresolved{ParticipantName: p.Name, Email: p.Email, Status: StatusNotFound, MarkedAt: v.MarkedAt})
		case Doubt:
			first, second := v.First, v.Second
			out = append(out, Unresolved{
				ParticipantName: p.Name,
				Email:           p.Email,
				Status:          StatusDoubt,
				First:           &first,
				Second:          &second,
				MarkedAt:        v.MarkedAt,
			})
		}
	}
	return out
}

// ParticipantsByStatus returns active participant names grouped by status,
// each group sorted by name.
func (w *Workspace) ParticipantsByStatus() map[Status][]string {
	out := make(map[Status][]string)
	for _, p := range w.participants {
		if !p.Active() {
			continue
		}
		s := statusOf(w.associations[p.Name])
		out[s] = append(out[s], p.Name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}
