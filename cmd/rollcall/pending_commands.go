package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rollcall/internal/api"
	"rollcall/internal/confirmation"
	"rollcall/internal/registry"
)

func newPendingCommand(ctx *commandContext) *cobra.Command {
	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect participants awaiting manual resolution",
	}
	pendingCmd.AddCommand(newPendingListCommand(ctx))
	return pendingCmd
}

func newPendingListCommand(ctx *commandContext) *cobra.Command {
	var trainingID string
	var statusFlag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List not-found and doubt participants",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status registry.UnresolvedStatus
			if raw := strings.TrimSpace(statusFlag); raw != "" {
				parsed, ok := registry.ParseUnresolvedStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (want not_found or doubt)", raw)
				}
				status = parsed
			}
			return ctx.withStore(cmd.Context(), func(store registry.Store) error {
				records, err := confirmation.New(store, ctx.log()).Pending(cmd.Context(), trainingID, status)
				if err != nil {
					return err
				}
				entries := make([]api.PendingEntry, 0, len(records))
				for _, rec := range records {
					entries = append(entries, api.FromUnresolved(rec))
				}
				if asJSON {
					return writeJSON(cmd, api.PendingListResponse{Items: entries})
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No participants awaiting resolution")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					candidates := e.FirstCandidateID
					if e.SecondCandidateID != "" {
						candidates += " | " + e.SecondCandidateID
					}
					rows = append(rows, []string{e.TrainingID, e.ParticipantName, e.Email, e.Status, candidates, e.RunID, e.MarkedAt})
				}
				fmt.Fprint(out, renderTable(out,
					[]string{"Training", "Participant", "Email", "Status", "Candidates", "Run", "Marked"},
					rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&trainingID, "training", "t", "", "Only list this training session")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only list not_found or doubt")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
