package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rollcall/internal/api"
	"rollcall/internal/review"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect and correct the associations of a run",
	}

	reviewCmd.AddCommand(newReviewShowCommand(ctx))
	reviewCmd.AddCommand(newReviewSearchCommand(ctx))
	reviewCmd.AddCommand(newReviewConfirmAllCommand(ctx))
	reviewCmd.AddCommand(newReviewSelectCommand(ctx))
	reviewCmd.AddCommand(newReviewDoubtCommand(ctx))
	reviewCmd.AddCommand(newReviewMergeCommand(ctx))
	reviewCmd.AddCommand(newReviewRematchCommand(ctx))

	for _, action := range []struct {
		use   string
		short string
		done  string
		apply func(*review.Workspace, string) error
	}{
		{"confirm", "Confirm the proposed registration", "confirmed", (*review.Workspace).Confirm},
		{"not-found", "Mark a participant as having no registration", "marked not found", (*review.Workspace).MarkNotFound},
		{"reset", "Return a not-found or doubt participant to pending", "reset to pending", (*review.Workspace).Reset},
		{"exclude", "Exclude a participant from matching and the gate", "excluded", (*review.Workspace).Exclude},
		{"restore", "Restore an excluded or merged participant", "restored", (*review.Workspace).Restore},
		{"approve", "Force-approve attendance as a manual override", "force-approved", (*review.Workspace).ForceApprove},
	} {
		reviewCmd.AddCommand(newParticipantActionCommand(ctx, action.use, action.short, action.done, action.apply))
	}

	return reviewCmd
}

// updateRun applies fn to the stored run under its lock and prints msg on
// success.
func updateRun(ctx *commandContext, cmd *cobra.Command, runID string, fn func(*review.Workspace) (string, error)) error {
	var msg string
	ws, err := ctx.workspaces().Update(cmd.Context(), runID, func(ws *review.Workspace) error {
		var err error
		msg, err = fn(ws)
		return err
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if msg != "" {
		fmt.Fprintln(out, msg)
	}
	if blocking := ws.Blocking(); len(blocking) > 0 {
		fmt.Fprintf(out, "%d participant(s) still awaiting review\n", len(blocking))
	} else {
		fmt.Fprintf(out, "Run %s is ready to commit\n", ws.ID())
	}
	return nil
}

func newParticipantActionCommand(ctx *commandContext, use, short, done string, apply func(*review.Workspace, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <run> <participant>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[1]
			return updateRun(ctx, cmd, args[0], func(ws *review.Workspace) (string, error) {
				if err := apply(ws, name); err != nil {
					return "", err
				}
				return fmt.Sprintf("%s: %s", name, done), nil
			})
		},
	}
}

func newReviewConfirmAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm-all <run>",
		Short: "Confirm every auto-matched participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateRun(ctx, cmd, args[0], func(ws *review.Workspace) (string, error) {
				n := ws.ConfirmAllAutoMatched()
				return fmt.Sprintf("Confirmed %d auto-matched participant(s)", n), nil
			})
		},
	}
}

func newReviewSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select <run> <participant> <registration-id>",
		Short: "Link a participant to a registration chosen by the operator",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, id := args[1], args[2]
			return updateRun(ctx, cmd, args[0], func(ws *review.Workspace) (string, error) {
				conflict, err := ws.Select(name, id)
				if err != nil {
					return "", err
				}
				msg := fmt.Sprintf("%s: confirmed as %s", name, id)
				if conflict != "" {
					msg += fmt.Sprintf(" (warning: also linked to %s)", conflict)
				}
				return msg, nil
			})
		},
	}
}

func newReviewDoubtCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doubt <run> <participant> <registration-id> <registration-id>",
		Short: "Mark a participant as ambiguous between two registrations",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[1]
			return updateRun(ctx, cmd, args[0], func(ws *review.Workspace) (string, error) {
				if err := ws.MarkDoubt(name, args[2], args[3]); err != nil {
					return "", err
				}
				return fmt.Sprintf("%s: doubt between %s and %s", name, args[2], args[3]), nil
			})
		},
	}
}

func newReviewMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <run> <primary> <other>...",
		Short: "Fold other participants' sessions into the primary",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args[1:]
			return updateRun(ctx, cmd, args[0], func(ws *review.Workspace) (string, error) {
				primary, err := ws.Merge(names...)
				if err != nil {
					return "", err
				}
				a, _ := ws.Analysis(primary.Name)
				return fmt.Sprintf("Merged %s into %s: %d min total, %d%% of window",
					strings.Join(names[1:], ", "), primary.Name, a.TotalMinutes, a.WindowPercent), nil
			})
		},
	}
}

func newReviewRematchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rematch <run> <participant>",
		Short: "Re-run matching for one participant against unclaimed registrations",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[1]
			return updateRun(ctx, cmd, args[0], func(ws *review.Workspace) (string, error) {
				assoc, err := ws.Rematch(name)
				if err != nil {
					return "", err
				}
				if m, ok := review.ProposedMatch(assoc); ok {
					return fmt.Sprintf("%s: %s %s (%d, %s)", name, assoc.Status(), m.Candidate.ID, m.Score, m.Reason), nil
				}
				return fmt.Sprintf("%s: %s", name, assoc.Status()), nil
			})
		},
	}
}

func newReviewShowCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run>",
		Short: "Show participants, attendance, and associations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.workspaces().Load(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, api.FromWorkspace(ws))
			}
			views := api.ParticipantViews(ws)
			if filter := strings.TrimSpace(statusFilter); filter != "" {
				kept := views[:0]
				for _, v := range views {
					if v.Status == filter {
						kept = append(kept, v)
					}
				}
				views = kept
			}

			out := cmd.OutOrStdout()
			src := ws.Source()
			fmt.Fprintf(out, "Run %s  training %s  file %s\n", ws.ID(), ws.TrainingID(), src.FileName)
			fmt.Fprint(out, renderTable(out,
				[]string{"Participant", "Sessions", "Total", "Window", "%", "Approved", "Status", "Registration", "Score", "Reason"},
				buildParticipantRows(views),
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
			fmt.Fprint(out, renderSummary(out, ws.Summary()))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show participants with this status")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func buildParticipantRows(views []api.ParticipantView) [][]string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		approved := yesNo(v.Approved)
		if v.ManualOverride {
			approved += " (override)"
		}
		status := v.Status
		switch {
		case v.Removed:
			status = "merged into " + v.MergedInto
		case v.Excluded:
			status = "excluded"
		}
		registration := v.CandidateID
		if v.CandidateName != "" {
			registration = fmt.Sprintf("%s %s", v.CandidateID, v.CandidateName)
		}
		if v.SecondID != "" {
			registration += " | " + v.SecondID
		}
		if v.Manual {
			registration += " (manual)"
		}
		score := ""
		if v.Score > 0 {
			score = fmt.Sprint(v.Score)
		}
		rows = append(rows, []string{
			v.Name,
			fmt.Sprint(v.Sessions),
			fmt.Sprint(v.TotalMinutes),
			fmt.Sprint(v.WindowMinutes),
			fmt.Sprint(v.WindowPercent),
			approved,
			status,
			registration,
			score,
			v.Reason,
		})
	}
	return rows
}

func newReviewSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <run> [query]",
		Short: "Search the run's candidate registrations",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.workspaces().Load(args[0])
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 2 {
				query = args[1]
			}
			matches := ws.SearchCandidates(query)
			if limit > 0 && len(matches) > limit {
				matches = matches[:limit]
			}
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, "No candidates found")
				return nil
			}
			claimed := ws.ClaimedRegistrations()
			rows := make([][]string, 0, len(matches))
			for _, m := range matches {
				c := m.Candidate
				rows = append(rows, []string{c.ID, c.Name, c.City, c.Email, c.Phone, fmt.Sprint(m.Score), claimed[c.ID]})
			}
			fmt.Fprint(out, renderTable(out,
				[]string{"ID", "Name", "City", "Email", "Phone", "Score", "Linked to"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of candidates to show (0 for all)")
	return cmd
}
