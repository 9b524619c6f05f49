package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rollcall/internal/registry"
)

func newRegistrationsCommand(ctx *commandContext) *cobra.Command {
	regCmd := &cobra.Command{
		Use:     "registrations",
		Aliases: []string{"reg"},
		Short:   "Manage training registrations",
	}
	regCmd.AddCommand(newRegistrationsAddCommand(ctx))
	regCmd.AddCommand(newRegistrationsListCommand(ctx))
	return regCmd
}

func newRegistrationsAddCommand(ctx *commandContext) *cobra.Command {
	var reg registry.Registration

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a person for a training session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(reg.TrainingID) == "" || strings.TrimSpace(reg.Name) == "" {
				return errors.New("--training and --name are required")
			}
			return ctx.withStore(cmd.Context(), func(store registry.Store) error {
				created, err := store.AddRegistration(cmd.Context(), reg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s\n", created.Name, created.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reg.ID, "id", "", "Registration id (generated when empty)")
	cmd.Flags().StringVarP(&reg.TrainingID, "training", "t", "", "Training session id")
	cmd.Flags().StringVarP(&reg.Name, "name", "n", "", "Display name")
	cmd.Flags().StringVar(&reg.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&reg.City, "city", "", "City")
	cmd.Flags().StringVar(&reg.Email, "email", "", "E-mail address")
	cmd.Flags().StringVar(&reg.RecruiterCode, "recruiter", "", "Recruiter code")
	return cmd
}

func newRegistrationsListCommand(ctx *commandContext) *cobra.Command {
	var trainingID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registrations and their attendance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store registry.Store) error {
				regs, err := store.ListRegistrations(cmd.Context(), trainingID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, regs)
				}
				out := cmd.OutOrStdout()
				if len(regs) == 0 {
					fmt.Fprintln(out, "No registrations found")
					return nil
				}
				fmt.Fprint(out, renderTable(out,
					[]string{"ID", "Training", "Name", "City", "Email", "Attendance"},
					buildRegistrationRows(regs),
					nil))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&trainingID, "training", "t", "", "Only list this training session")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func buildRegistrationRows(regs []registry.Registration) [][]string {
	rows := make([][]string, 0, len(regs))
	for _, r := range regs {
		rows = append(rows, []string{r.ID, r.TrainingID, r.Name, r.City, r.Email, attendanceLabel(r.Attendance)})
	}
	return rows
}

func attendanceLabel(a *registry.Attendance) string {
	if a == nil || !a.Validated {
		return "-"
	}
	label := "rejected"
	if a.Approved {
		label = "approved"
	}
	if a.ManualOverride {
		label += " (override)"
	}
	return fmt.Sprintf("%s %dmin/%d%%", label, a.TotalMinutes, a.WindowPercent)
}
