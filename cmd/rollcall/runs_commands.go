package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rollcall/internal/api"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage stored review runs",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsDeleteCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List review runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := ctx.workspaces().List()
			if err != nil {
				return err
			}
			items := make([]api.WorkspaceItem, 0, len(entries))
			for _, e := range entries {
				items = append(items, api.FromEntry(e))
			}
			if asJSON {
				return writeJSON(cmd, api.WorkspaceListResponse{Items: items})
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No review runs")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, []string{it.ID, it.TrainingID, it.FileName, it.UpdatedAt, yesNo(it.Ready)})
			}
			fmt.Fprint(out, renderTable(out, []string{"Run", "Training", "File", "Updated", "Ready"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newRunsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run>",
		Short: "Delete a stored review run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.workspaces().Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}
