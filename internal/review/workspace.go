package review

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/matching"
)

var (
	// ErrUnknownParticipant is returned for display names not in the workspace.
	ErrUnknownParticipant = errors.New("unknown participant")
	// ErrUnknownCandidate is returned for registration ids not in the workspace.
	ErrUnknownCandidate = errors.New("unknown registration")
	// ErrInactiveParticipant is returned when an excluded or merged-away
	// participant is the target of a review action.
	ErrInactiveParticipant = errors.New("participant is excluded or removed")
)

// SourceInfo describes the upload a workspace was built from.
type SourceInfo struct {
	FileName         string `json:"file_name,omitempty"`
	DataRows         int    `json:"data_rows"`
	Records          int    `json:"records"`
	Dropped          int    `json:"dropped"`
	DerivedDurations int    `json:"derived_durations,omitempty"`
}

// Seed carries the pipeline output used to build a workspace.
type Seed struct {
	ID           string
	Source       SourceInfo
	Exclusions   []string
	Participants []*attendance.Participant
	Candidates   []matching.Candidate
	// Assignments are the batch matching outcomes in participant order.
	// Missing entries start as Pending.
	Assignments []matching.Assignment
}

// Option customizes a workspace.
type Option func(*Workspace)

// WithClock overrides the time source used for transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) {
		if now != nil {
			w.now = now
		}
	}
}

// Workspace is the review state of one reconciliation run.
type Workspace struct {
	id         string
	createdAt  time.Time
	updatedAt  time.Time
	source     SourceInfo
	exclusions []string

	analyzer     *attendance.Analyzer
	participants []*attendance.Participant
	byName       map[string]*attendance.Participant
	analyses     map[string]attendance.Analysis
	associations map[string]Association
	candidates   []matching.Candidate
	byID         map[string]matching.Candidate

	now func() time.Time
}

// New builds a workspace from pipeline output. Every participant is
// analysed against analyzer's window.
func New(analyzer *attendance.Analyzer, seed Seed, opts ...Option) (*Workspace, error) {
	if analyzer == nil {
		return nil, errors.New("review: analyzer is required")
	}
	if strings.TrimSpace(seed.ID) == "" {
		return nil, errors.New("review: workspace id is required")
	}
	w := &Workspace{
		id:           seed.ID,
		source:       seed.Source,
		exclusions:   append([]string(nil), seed.Exclusions...),
		analyzer:     analyzer,
		byName:       make(map[string]*attendance.Participant, len(seed.Participants)),
		analyses:     make(map[string]attendance.Analysis, len(seed.Participants)),
		associations: make(map[string]Association, len(seed.Participants)),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.setCandidates(seed.Candidates)

	byAssignment := make(map[string]matching.Assignment, len(seed.Assignments))
	for _, a := range seed.Assignments {
		byAssignment[a.Subject.Name] = a
	}
	for _, p := range seed.Participants {
		if p == nil {
			continue
		}
		if _, dup := w.byName[p.Name]; dup {
			return nil, fmt.Errorf("review: duplicate participant %q", p.Name)
		}
		w.participants = append(w.participants, p)
		w.byName[p.Name] = p
		w.analyses[p.Name] = analyzer.Analyze(p)
		assoc := Association(Pending{})
		if a, ok := byAssignment[p.Name]; ok && p.Active() {
			assoc = FromAssignment(a)
		}
		w.associations[p.Name] = assoc
	}
	w.createdAt = w.now()
	w.updatedAt = w.createdAt
	return w, nil
}

func (w *Workspace) setCandidates(candidates []matching.Candidate) {
	w.candidates = append([]matching.Candidate(nil), candidates...)
	w.byID = matching.Index(w.candidates)
}

// ID returns the run identifier.
func (w *Workspace) ID() string { return w.id }

// TrainingID returns the training the run belongs to.
func (w *Workspace) TrainingID() string { return w.analyzer.Config().TrainingID }

// Window returns the window configuration.
func (w *Workspace) Window() attendance.WindowConfig { return w.analyzer.Config() }

// Source returns upload statistics.
func (w *Workspace) Source() SourceInfo { return w.source }

// CreatedAt returns when the run was built.
func (w *Workspace) CreatedAt() time.Time { return w.createdAt }

// UpdatedAt returns when the run last changed.
func (w *Workspace) UpdatedAt() time.Time { return w.updatedAt }

// Participants returns every participant, including excluded and removed
// ones, in first-seen order.
func (w *Workspace) Participants() []*attendance.Participant {
	out := make([]*attendance.Participant, len(w.participants))
	copy(out, w.participants)
	return out
}

// Participant looks up a participant by exact display name.
func (w *Workspace) Participant(name string) (*attendance.Participant, bool) {
	p, ok := w.byName[name]
	return p, ok
}

// Analysis returns the presence analysis for name.
func (w *Workspace) Analysis(name string) (attendance.Analysis, bool) {
	a, ok := w.analyses[name]
	return a, ok
}

// Association returns the association for name.
func (w *Workspace) Association(name string) (Association, bool) {
	a, ok := w.associations[name]
	return a, ok
}

// Candidates returns the registrations loaded for the training.
func (w *Workspace) Candidates() []matching.Candidate {
	out := make([]matching.Candidate, len(w.candidates))
	copy(out, w.candidates)
	return out
}

// ClaimedRegistrations maps registration ids to the first active participant
// holding them. It is computed from the associations on every call.
func (w *Workspace) ClaimedRegistrations() map[string]string {
	return w.claims("")
}

// claims maps registration ids to their first active holder, ignoring the
// participant named skip.
func (w *Workspace) claims(skip string) map[string]string {
	out := make(map[string]string)
	for _, p := range w.participants {
		if !p.Active() || p.Name == skip {
			continue
		}
		if c, ok := ClaimedCandidate(w.associations[p.Name]); ok {
			if _, taken := out[c.ID]; !taken {
				out[c.ID] = p.Name
			}
		}
	}
	return out
}

func (w *Workspace) lookup(name string) (*attendance.Participant, error) {
	p, ok := w.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParticipant, name)
	}
	return p, nil
}

func (w *Workspace) lookupActive(name string) (*attendance.Participant, error) {
	p, err := w.lookup(name)
	if err != nil {
		return nil, err
	}
	if !p.Active() {
		return nil, fmt.Errorf("%w: %q", ErrInactiveParticipant, name)
	}
	return p, nil
}

func (w *Workspace) candidate(id string) (matching.Candidate, error) {
	c, ok := w.byID[strings.TrimSpace(id)]
	if !ok {
		return matching.Candidate{}, fmt.Errorf("%w: %q", ErrUnknownCandidate, id)
	}
	return c, nil
}

func (w *Workspace) apply(name string, next Association, err error) error {
	if err != nil {
		return fmt.Errorf("participant %q: %w", name, err)
	}
	w.associations[name] = next
	w.touch()
	return nil
}

func (w *Workspace) touch() {
	w.updatedAt = w.now()
}

// Confirm accepts the system proposal for name.
func (w *Workspace) Confirm(name string) error {
	if _, err := w.lookupActive(name); err != nil {
		return err
	}
	next, err := Confirm(w.associations[name], w.now())
	return w.apply(name, next, err)
}

// ConfirmAllAutoMatched confirms every active AutoMatched participant and
// returns how many changed.
func (w *Workspace) ConfirmAllAutoMatched() int {
	count := 0
	at := w.now()
	for _, p := range w.participants {
		if !p.Active() {
			continue
		}
		current := w.associations[p.Name]
		if statusOf(current) != StatusAutoMatched {
			continue
		}
		next, err := Confirm(current, at)
		if err != nil {
			continue
		}
		w.associations[p.Name] = next
		count++
	}
	if count > 0 {
		w.touch()
	}
	return count
}

// Select confirms registration id for name. The returned conflict is the
// display name of another active participant already holding id; the
// selection still succeeds since uniqueness is advisory.
func (w *Workspace) Select(name, id string) (conflict string, err error) {
	if _, err := w.lookupActive(name); err != nil {
		return "", err
	}
	c, err := w.candidate(id)
	if err != nil {
		return "", err
	}
	if holder, ok := w.claims(name)[c.ID]; ok {
		conflict = holder
	}
	next, err := Select(w.associations[name], c, w.now())
	if err := w.apply(name, next, err); err != nil {
		return "", err
	}
	return conflict, nil
}

// MarkNotFound records that name has no registration.
func (w *Workspace) MarkNotFound(name string) error {
	if _, err := w.lookupActive(name); err != nil {
		return err
	}
	next, err := MarkNotFound(w.associations[name], w.now())
	return w.apply(name, next, err)
}

// MarkDoubt records two competing registrations for name.
func (w *Workspace) MarkDoubt(name, firstID, secondID string) error {
	if _, err := w.lookupActive(name); err != nil {
		return err
	}
	first, err := w.candidate(firstID)
	if err != nil {
		return err
	}
	second, err := w.candidate(secondID)
	if err != nil {
		return err
	}
	next, err := MarkDoubt(w.associations[name], first, second, w.now())
	return w.apply(name, next, err)
}

// Reset returns a NotFound or Doubt participant to Pending.
func (w *Workspace) Reset(name string) error {
	if _, err := w.lookup(name); err != nil {
		return err
	}
	next, err := Reset(w.associations[name])
	return w.apply(name, next, err)
}

// Rematch replaces the system proposal for name with a fresh best match
// against registrations not claimed by other active participants.
func (w *Workspace) Rematch(name string) (Association, error) {
	p, err := w.lookupActive(name)
	if err != nil {
		return nil, err
	}
	current := w.associations[name]
	if !canRematch(current) {
		return current, fmt.Errorf("participant %q: %w", name, transitionError("rematch", current))
	}
	taken := make(map[string]struct{})
	for id := range w.claims(name) {
		taken[id] = struct{}{}
	}
	next := Association(Pending{})
	if m, ok := matching.BestMatch(p.Name, p.Email, matching.Exclude(w.candidates, taken)); ok {
		next = fromMatch(m)
	}
	w.associations[name] = next
	w.touch()
	return next, nil
}

// Merge folds the named participants into the one with the greatest total
// duration and recomputes its analysis. A prior manual override on the
// primary is dropped with the recomputation.
func (w *Workspace) Merge(names ...string) (*attendance.Participant, error) {
	ps := make([]*attendance.Participant, 0, len(names))
	for _, name := range names {
		p, err := w.lookupActive(name)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	primary, err := attendance.Merge(ps)
	if err != nil {
		return nil, err
	}
	w.analyses[primary.Name] = w.analyzer.Analyze(primary)
	w.touch()
	return primary, nil
}

// Exclude removes name from matching, the confirmation gate, and counts.
func (w *Workspace) Exclude(name string) error {
	p, err := w.lookup(name)
	if err != nil {
		return err
	}
	p.Excluded = true
	w.touch()
	return nil
}

// Restore brings an excluded or merged-away participant back as a standalone
// record with a freshly computed analysis.
func (w *Workspace) Restore(name string) error {
	p, err := w.lookup(name)
	if err != nil {
		return err
	}
	if p.Active() {
		return nil
	}
	p.Restore()
	w.analyses[name] = w.analyzer.Analyze(p)
	w.touch()
	return nil
}

// ForceApprove grants an attendance exception to name.
func (w *Workspace) ForceApprove(name string) error {
	if _, err := w.lookupActive(name); err != nil {
		return err
	}
	a := w.analyses[name]
	a.ForceApprove()
	w.analyses[name] = a
	w.touch()
	return nil
}

// Blocking lists active participants still Pending, AutoMatched, or
// Suggested.
func (w *Workspace) Blocking() []string {
	var out []string
	for _, p := range w.participants {
		if !p.Active() {
			continue
		}
		if statusOf(w.associations[p.Name]).Blocking() {
			out = append(out, p.Name)
		}
	}
	return out
}

// ReadyForConfirmation reports whether every active participant has reached
// Confirmed, NotFound, or Doubt.
func (w *Workspace) ReadyForConfirmation() bool {
	return len(w.Blocking()) == 0
}
