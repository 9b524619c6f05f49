package attendance

import (
	"strings"

	"rollcall/internal/sessionlog"
	"rollcall/internal/textutil"
)

// Consolidate groups records by exact trimmed display name, preserving the
// order in which names first appear. Participants whose folded name matches
// an exclusion term are returned with Excluded set.
func Consolidate(records []sessionlog.Record, exclusions []string) []*Participant {
	terms := normalizeTerms(exclusions)
	byName := make(map[string]*Participant, len(records))
	ordered := make([]*Participant, 0, len(records))

	for _, rec := range records {
		key := strings.TrimSpace(rec.Name)
		if key == "" {
			continue
		}
		p, ok := byName[key]
		if !ok {
			normalized := textutil.NormalizeName(key)
			p = &Participant{
				Name:           key,
				NormalizedName: normalized,
				Excluded:       matchesExclusion(normalized, terms),
			}
			byName[key] = p
			ordered = append(ordered, p)
		}
		if p.Email == "" {
			p.Email = strings.TrimSpace(rec.Email)
		}
		p.addSession(Session{Join: rec.JoinTime, Leave: rec.LeaveTime, Minutes: rec.Duration})
	}
	return ordered
}

// MatchesExclusion reports whether name matches any exclusion term.
func MatchesExclusion(name string, exclusions []string) bool {
	return matchesExclusion(textutil.NormalizeName(name), normalizeTerms(exclusions))
}

func matchesExclusion(normalized string, terms []string) bool {
	if normalized == "" {
		return false
	}
	for _, term := range terms {
		if normalized == term ||
			strings.HasPrefix(normalized, term+" ") ||
			strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

func normalizeTerms(exclusions []string) []string {
	terms := make([]string, 0, len(exclusions))
	for _, raw := range exclusions {
		if term := textutil.NormalizeName(raw); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}
