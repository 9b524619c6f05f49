package matching

import "sort"

// Subject is the participant side of a batch match.
type Subject struct {
	Name  string
	Email string
}

// Assignment is the batch outcome for one subject. Match is nil when the
// subject was left pending without a proposal.
type Assignment struct {
	Subject Subject
	Match   *Match
	Status  Status
	// Rematched is set when the first choice was already claimed and the
	// proposal came from the remaining pool.
	Rematched bool
}

// ResolveBatch proposes at most one registration per subject so that no
// registration is proposed twice. Results are returned in input order.
func ResolveBatch(subjects []Subject, candidates []Candidate) []Assignment {
	type ranked struct {
		idx   int
		best  Match
		found bool
	}
	order := make([]ranked, len(subjects))
	for i, s := range subjects {
		best, found := BestMatch(s.Name, s.Email, candidates)
		order[i] = ranked{idx: i, best: best, found: found}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].best.Score > order[j].best.Score
	})

	results := make([]Assignment, len(subjects))
	for i, s := range subjects {
		results[i] = Assignment{Subject: s, Status: StatusPending}
	}

	for _, r := range order {
		if !r.found || r.best.Status() == StatusPending {
			continue
		}
		claimed := ClaimedIDs(results)
		if _, taken := claimed[r.best.Candidate.ID]; !taken {
			m := r.best
			results[r.idx].Match = &m
			results[r.idx].Status = m.Status()
			continue
		}

		subject := subjects[r.idx]
		alt, ok := BestMatch(subject.Name, subject.Email, Exclude(candidates, claimed))
		if !ok || alt.Score < SuggestThreshold {
			continue
		}
		results[r.idx].Match = &alt
		results[r.idx].Status = alt.Status()
		results[r.idx].Rematched = true
	}
	return results
}

// ClaimedIDs derives the set of registration IDs proposed by non-pending
// assignments.
func ClaimedIDs(assignments []Assignment) map[string]struct{} {
	out := make(map[string]struct{}, len(assignments))
	for _, a := range assignments {
		if a.Match == nil || a.Status == StatusPending {
			continue
		}
		out[a.Match.Candidate.ID] = struct{}{}
	}
	return out
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}
