package attendance

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrMergeTooFew is returned when fewer than two participants are supplied.
	ErrMergeTooFew = errors.New("merge requires at least two participants")
	// ErrMergeInactive is returned when a merge input was already removed.
	ErrMergeInactive = errors.New("participant already removed")
)

// Merge folds participants into the one with the greatest total duration.
// The primary keeps its name and, unless empty, its email; the others are
// flagged Removed. Callers must recompute the primary's analysis.
func Merge(participants []*Participant) (*Participant, error) {
	if len(participants) < 2 {
		return nil, ErrMergeTooFew
	}
	seen := make(map[*Participant]struct{}, len(participants))
	for _, p := range participants {
		if p == nil {
			return nil, errors.New("merge: nil participant")
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("merge: %q listed twice", p.Name)
		}
		seen[p] = struct{}{}
		if p.Removed {
			return nil, fmt.Errorf("merge %q: %w", p.Name, ErrMergeInactive)
		}
	}

	primary := participants[0]
	for _, p := range participants[1:] {
		if p.TotalMinutes > primary.TotalMinutes {
			primary = p
		}
	}

	for _, p := range participants {
		if p == primary {
			continue
		}
		primary.Sessions = append(primary.Sessions, p.Sessions...)
		if primary.Email == "" {
			primary.Email = p.Email
		}
		primary.MergedFrom = append(primary.MergedFrom, p.Name)
		p.Removed = true
		p.MergedInto = primary.Name
	}
	sort.SliceStable(primary.Sessions, func(i, j int) bool {
		return primary.Sessions[i].Join.Before(primary.Sessions[j].Join)
	})
	primary.rederiveBounds()
	return primary, nil
}
