package review

import (
	"errors"
	"fmt"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/matching"
)

// SnapshotVersion is the current workspace document version.
const SnapshotVersion = 1

// Snapshot is the serialisable form of a Workspace.
type Snapshot struct {
	Version      int                     `json:"version"`
	ID           string                  `json:"id"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	Window       attendance.WindowConfig `json:"window"`
	Source       SourceInfo              `json:"source"`
	Exclusions   []string                `json:"exclusions,omitempty"`
	Participants []ParticipantSnapshot   `json:"participants"`
	Candidates   []matching.Candidate    `json:"candidates"`
}

// ParticipantSnapshot is one participant with its analysis and association.
type ParticipantSnapshot struct {
	Participant *attendance.Participant `json:"participant"`
	Analysis    attendance.Analysis     `json:"analysis"`
	Association AssociationRecord       `json:"association"`
}

// AssociationRecord is the flat wire form of an Association. Fields other
// than Status are only set for the variants that carry them.
type AssociationRecord struct {
	Status    Status              `json:"status"`
	Candidate *matching.Candidate `json:"candidate,omitempty"`
	Second    *matching.Candidate `json:"second,omitempty"`
	Score     int                 `json:"score,omitempty"`
	Reason    matching.Reason     `json:"reason,omitempty"`
	Manual    bool                `json:"manual,omitempty"`
	At        *time.Time          `json:"at,omitempty"`
}

// EncodeAssociation flattens a into its wire form.
func EncodeAssociation(a Association) AssociationRecord {
	switch v := a.(type) {
	case AutoMatched:
		c := v.Match.Candidate
		return AssociationRecord{Status: StatusAutoMatched, Candidate: &c, Score: v.Match.Score, Reason: v.Match.Reason}
	case Suggested:
		c := v.Match.Candidate
		return AssociationRecord{Status: StatusSuggested, Candidate: &c, Score: v.Match.Score, Reason: v.Match.Reason}
	case Confirmed:
		c := v.Candidate
		return AssociationRecord{Status: StatusConfirmed, Candidate: &c, Manual: v.Manual, At: timePtr(v.ConfirmedAt)}
	case NotFound:
		return AssociationRecord{Status: StatusNotFound, At: timePtr(v.MarkedAt)}
	case Doubt:
		first, second := v.First, v.Second
		return AssociationRecord{Status: StatusDoubt, Candidate: &first, Second: &second, At: timePtr(v.MarkedAt)}
	default:
		return AssociationRecord{Status: StatusPending}
	}
}

// DecodeAssociation rebuilds an Association, rejecting records whose fields
// do not fit their status.
func DecodeAssociation(r AssociationRecord) (Association, error) {
	switch r.Status {
	case StatusPending, "":
		if r.Candidate != nil || r.Second != nil {
			return nil, errors.New("pending association carries a candidate")
		}
		return Pending{}, nil
	case StatusAutoMatched, StatusSuggested:
		if r.Candidate == nil || r.Second != nil {
			return nil, fmt.Errorf("%s association needs exactly one candidate", r.Status)
		}
		m := matching.Match{Candidate: *r.Candidate, Score: r.Score, Reason: r.Reason}
		if r.Status == StatusAutoMatched {
			return AutoMatched{Match: m}, nil
		}
		return Suggested{Match: m}, nil
	case StatusConfirmed:
		if r.Candidate == nil || r.Second != nil {
			return nil, errors.New("confirmed association needs exactly one candidate")
		}
		return Confirmed{Candidate: *r.Candidate, Manual: r.Manual, ConfirmedAt: timeValue(r.At)}, nil
	case StatusNotFound:
		if r.Candidate != nil || r.Second != nil {
			return nil, errors.New("not_found association carries a candidate")
		}
		return NotFound{MarkedAt: timeValue(r.At)}, nil
	case StatusDoubt:
		if r.Candidate == nil || r.Second == nil || r.Candidate.ID == r.Second.ID {
			return nil, ErrDoubtCandidates
		}
		return Doubt{First: *r.Candidate, Second: *r.Second, MarkedAt: timeValue(r.At)}, nil
	default:
		return nil, fmt.Errorf("unknown association status %q", r.Status)
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// Snapshot captures the workspace for persistence.
func (w *Workspace) Snapshot() Snapshot {
	s := Snapshot{
		Version:    SnapshotVersion,
		ID:         w.id,
		CreatedAt:  w.createdAt,
		UpdatedAt:  w.updatedAt,
		Window:     w.analyzer.Config(),
		Source:     w.source,
		Exclusions: append([]string(nil), w.exclusions...),
		Candidates: w.Candidates(),
	}
	s.Participants = make([]ParticipantSnapshot, 0, len(w.participants))
	for _, p := range w.participants {
		s.Participants = append(s.Participants, ParticipantSnapshot{
			Participant: p,
			Analysis:    w.analyses[p.Name],
			Association: EncodeAssociation(w.associations[p.Name]),
		})
	}
	return s
}

// FromSnapshot rebuilds a workspace. Stored analyses are kept as written so
// manual overrides survive.
func FromSnapshot(s Snapshot, opts ...Option) (*Workspace, error) {
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported workspace version %d", s.Version)
	}
	analyzer, err := attendance.NewAnalyzer(s.Window)
	if err != nil {
		return nil, err
	}
	w := &Workspace{
		id:           s.ID,
		createdAt:    s.CreatedAt,
		updatedAt:    s.UpdatedAt,
		source:       s.Source,
		exclusions:   append([]string(nil), s.Exclusions...),
		analyzer:     analyzer,
		byName:       make(map[string]*attendance.Participant, len(s.Participants)),
		analyses:     make(map[string]attendance.Analysis, len(s.Participants)),
		associations: make(map[string]Association, len(s.Participants)),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.setCandidates(s.Candidates)
	for _, ps := range s.Participants {
		p := ps.Participant
		if p == nil {
			return nil, errors.New("workspace snapshot has an empty participant")
		}
		if _, dup := w.byName[p.Name]; dup {
			return nil, fmt.Errorf("workspace snapshot repeats participant %q", p.Name)
		}
		assoc, err := DecodeAssociation(ps.Association)
		if err != nil {
			return nil, fmt.Errorf("participant %q: %w", p.Name, err)
		}
		w.participants = append(w.participants, p)
		w.byName[p.Name] = p
		w.analyses[p.Name] = ps.Analysis
		w.associations[p.Name] = assoc
	}
	return w, nil
}
