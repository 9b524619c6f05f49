package matching

import (
	"math"
	"strings"

	"rollcall/internal/textutil"
)

const (
	ScoreExact        = 100
	ScoreFirstAndLast = 95
	ScoreFirstInitial = 85
	ScoreFirstName    = 70

	// AutoMatchThreshold and SuggestThreshold map a raw score to the
	// initial association status.
	AutoMatchThreshold = 90
	SuggestThreshold   = 60

	minFirstTokenLength = 3
)

// Reason labels why a candidate was proposed.
type Reason string

const (
	ReasonSameEmail   Reason = "same e-mail"
	ReasonIdentical   Reason = "identical name"
	ReasonVerySimilar Reason = "very similar name"
	ReasonFirstName   Reason = "first-name match"
	ReasonPartial     Reason = "partially similar"
	ReasonFieldMatch  Reason = "contact field match"
)

// Status is the association status implied by a score.
type Status string

const (
	StatusAutoMatched Status = "auto_matched"
	StatusSuggested   Status = "suggested"
	StatusPending     Status = "pending"
)

// StatusForScore maps a raw score to its initial association status.
func StatusForScore(score int) Status {
	switch {
	case score >= AutoMatchThreshold:
		return StatusAutoMatched
	case score >= SuggestThreshold:
		return StatusSuggested
	default:
		return StatusPending
	}
}

// ReasonForScore labels a name score by bucket.
func ReasonForScore(score int) Reason {
	switch {
	case score >= ScoreFirstAndLast:
		return ReasonIdentical
	case score >= ScoreFirstInitial:
		return ReasonVerySimilar
	case score >= ScoreFirstName:
		return ReasonFirstName
	default:
		return ReasonPartial
	}
}

// NameScore rates how likely two display names refer to the same person, from
// 0 to 100.
func NameScore(a, b string) int {
	na := textutil.NormalizeName(a)
	nb := textutil.NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return ScoreExact
	}

	ta := strings.Fields(na)
	tb := strings.Fields(nb)
	firstMatch := ta[0] == tb[0]
	if firstMatch && len(ta) >= 2 && len(tb) >= 2 {
		lastA := ta[len(ta)-1]
		lastB := tb[len(tb)-1]
		if lastA == lastB {
			return ScoreFirstAndLast
		}
		if firstRune(lastA) == firstRune(lastB) {
			return ScoreFirstInitial
		}
	}
	if firstMatch && len([]rune(ta[0])) >= minFirstTokenLength {
		return ScoreFirstName
	}

	score := int(math.Round(textutil.EditRatio(na, nb) * 100))
	return max(score, 0)
}

// Score rates a participant against one candidate. A case-insensitive email
// match wins outright regardless of the names.
func Score(name, email string, c Candidate) (int, Reason) {
	if sameEmail(email, c.Email) {
		return ScoreExact, ReasonSameEmail
	}
	score := NameScore(name, c.Name)
	return score, ReasonForScore(score)
}

func sameEmail(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && b != "" && strings.EqualFold(a, b)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
