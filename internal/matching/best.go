package matching

// Match is a scored proposal of one candidate for a participant.
type Match struct {
	Candidate Candidate `json:"candidate"`
	Score     int       `json:"score"`
	Reason    Reason    `json:"reason"`
}

// Status returns the association status implied by the match score.
func (m Match) Status() Status {
	return StatusForScore(m.Score)
}

// BestMatch scans candidates and keeps the single highest score. Ties keep
// the earliest candidate. ok is false only when candidates is empty.
func BestMatch(name, email string, candidates []Candidate) (Match, bool) {
	var (
		best  Match
		found bool
	)
	for _, c := range candidates {
		score, reason := Score(name, email, c)
		if !found || score > best.Score {
			best = Match{Candidate: c, Score: score, Reason: reason}
			found = true
		}
	}
	return best, found
}

// Rank scores every candidate and returns them ordered by descending score,
// keeping input order for ties.
func Rank(name, email string, candidates []Candidate) []Match {
	out := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score, reason := Score(name, email, c)
		out = append(out, Match{Candidate: c, Score: score, Reason: reason})
	}
	sortMatches(out)
	return out
}

// Exclude returns candidates whose IDs are not in taken.
func Exclude(candidates []Candidate, taken map[string]struct{}) []Candidate {
	if len(taken) == 0 {
		return candidates
	}
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := taken[c.ID]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}
