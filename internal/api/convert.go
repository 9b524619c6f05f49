package api

import (
	"time"

	"rollcall/internal/registry"
	"rollcall/internal/review"
	"rollcall/internal/workspaces"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromUnresolved converts a registry record to its API representation.
func FromUnresolved(rec registry.UnresolvedRecord) PendingEntry {
	return PendingEntry{
		ID:                rec.ID,
		RunID:             rec.RunID,
		TrainingID:        rec.TrainingID,
		ParticipantName:   rec.ParticipantName,
		Email:             rec.Email,
		Status:            string(rec.Status),
		FirstCandidateID:  rec.FirstCandidateID,
		SecondCandidateID: rec.SecondCandidateID,
		MarkedAt:          formatTime(rec.MarkedAt),
		UpdatedAt:         formatTime(rec.UpdatedAt),
	}
}

// FromEntry converts a workspace listing entry.
func FromEntry(e workspaces.Entry) WorkspaceItem {
	return WorkspaceItem{
		ID:         e.ID,
		TrainingID: e.TrainingID,
		FileName:   e.FileName,
		CreatedAt:  formatTime(e.CreatedAt),
		UpdatedAt:  formatTime(e.UpdatedAt),
		Ready:      e.Ready,
	}
}

// FromSummary converts run counters.
func FromSummary(s review.ValidationResult) Summary {
	return Summary{
		Participants:    s.Participants,
		Active:          s.Active,
		Excluded:        s.Excluded,
		Removed:         s.Removed,
		Approved:        s.Approved,
		Rejected:        s.Rejected,
		ManualOverrides: s.ManualOverrides,
		AutoMatched:     s.AutoMatched,
		Suggested:       s.Suggested,
		Pending:         s.Pending,
		Confirmed:       s.Confirmed,
		NotFound:        s.NotFound,
		Doubt:           s.Doubt,
		Ready:           s.Ready,
	}
}

// ParticipantViews flattens every participant of ws in first-seen order.
func ParticipantViews(ws *review.Workspace) []ParticipantView {
	participants := ws.Participants()
	out := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		view := ParticipantView{
			Name:       p.Name,
			Email:      p.Email,
			Sessions:   len(p.Sessions),
			Excluded:   p.Excluded,
			Removed:    p.Removed,
			MergedInto: p.MergedInto,
		}
		if a, ok := ws.Analysis(p.Name); ok {
			view.TotalMinutes = a.TotalMinutes
			view.WindowMinutes = a.WindowMinutes
			view.WindowPercent = a.WindowPercent
			view.Approved = a.Approved
			view.ManualOverride = a.ManualOverride
		}
		if assoc, ok := ws.Association(p.Name); ok {
			rec := review.EncodeAssociation(assoc)
			view.Status = string(rec.Status)
			if rec.Candidate != nil {
				view.CandidateID = rec.Candidate.ID
				view.CandidateName = rec.Candidate.Name
			}
			if rec.Second != nil {
				view.SecondID = rec.Second.ID
				view.SecondName = rec.Second.Name
			}
			view.Score = rec.Score
			view.Reason = string(rec.Reason)
			view.Manual = rec.Manual
		}
		out = append(out, view)
	}
	return out
}

// FromWorkspace builds the full detail payload for ws.
func FromWorkspace(ws *review.Workspace) WorkspaceDetail {
	window := ws.Window()
	return WorkspaceDetail{
		WorkspaceItem: WorkspaceItem{
			ID:         ws.ID(),
			TrainingID: ws.TrainingID(),
			FileName:   ws.Source().FileName,
			CreatedAt:  formatTime(ws.CreatedAt()),
			UpdatedAt:  formatTime(ws.UpdatedAt()),
			Ready:      ws.ReadyForConfirmation(),
		},
		Window: WindowView{
			LiveStart:     formatTime(window.LiveStart),
			LiveEnd:       formatTime(window.LiveEnd),
			WindowStart:   formatTime(window.WindowStart),
			WindowEnd:     formatTime(window.WindowEnd),
			MinMinutes:    window.MinMinutes,
			MinPercentage: window.MinPercentage,
		},
		Summary:      FromSummary(ws.Summary()),
		Participants: ParticipantViews(ws),
	}
}
