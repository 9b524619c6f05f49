package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rollcall/internal/confirmation"
	"rollcall/internal/registry"
)

func newCommitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "commit <run>",
		Short: "Write confirmed attendance and unresolved participants to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.workspaces().Load(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(store registry.Store) error {
				report, err := confirmation.New(store, ctx.log()).Commit(cmd.Context(), ws)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Attendance written: %d\n", report.Persisted)
				fmt.Fprintf(out, "Unresolved queued: %d\n", report.Unresolved)
				if report.OK() {
					return nil
				}
				rows := make([][]string, 0, len(report.Failures))
				for _, f := range report.Failures {
					rows = append(rows, []string{string(f.Kind), f.ParticipantName, f.RegistrationID, f.Err.Error()})
				}
				fmt.Fprint(out, renderTable(out, []string{"Kind", "Participant", "Registration", "Error"}, rows, nil))
				return fmt.Errorf("%d record(s) failed; rerun commit %s to retry", report.Failed(), ws.ID())
			})
		},
	}
}
