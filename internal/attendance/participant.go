package attendance

import "time"

// Session is one join/leave interval attributed to a participant.
type Session struct {
	Join    time.Time `json:"join"`
	Leave   time.Time `json:"leave"`
	Minutes int       `json:"minutes"`
}

// Participant is the consolidated timeline for one exact display name.
type Participant struct {
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	Email          string    `json:"email,omitempty"`
	Sessions       []Session `json:"sessions"`
	TotalMinutes   int       `json:"total_minutes"`
	FirstJoin      time.Time `json:"first_join"`
	LastLeave      time.Time `json:"last_leave"`

	// Excluded marks staff or other operator-excluded names.
	Excluded bool `json:"excluded,omitempty"`
	// Removed marks a participant folded into another by Merge.
	Removed    bool     `json:"removed,omitempty"`
	MergedInto string   `json:"merged_into,omitempty"`
	MergedFrom []string `json:"merged_from,omitempty"`
}

// Active reports whether the participant takes part in matching and the
// confirmation gate.
func (p *Participant) Active() bool {
	return p != nil && !p.Excluded && !p.Removed
}

// Restore clears the excluded and removed flags. Sessions already merged into
// another participant stay there.
func (p *Participant) Restore() {
	if p == nil {
		return
	}
	p.Excluded = false
	p.Removed = false
	p.MergedInto = ""
}

func (p *Participant) addSession(s Session) {
	p.Sessions = append(p.Sessions, s)
	p.TotalMinutes += s.Minutes
	if p.FirstJoin.IsZero() || s.Join.Before(p.FirstJoin) {
		p.FirstJoin = s.Join
	}
	if s.Leave.After(p.LastLeave) {
		p.LastLeave = s.Leave
	}
}

func (p *Participant) rederiveBounds() {
	p.TotalMinutes = 0
	p.FirstJoin = time.Time{}
	p.LastLeave = time.Time{}
	sessions := p.Sessions
	p.Sessions = make([]Session, 0, len(sessions))
	for _, s := range sessions {
		p.addSession(s)
	}
}
