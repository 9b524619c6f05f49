package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rollcall/internal/attendance"
	"rollcall/internal/reconcile"
	"rollcall/internal/registry"
	"rollcall/internal/review"
	"rollcall/internal/sessionlog"
)

type importOptions struct {
	trainingID  string
	liveStart   string
	liveEnd     string
	windowStart string
	windowEnd   string
	minMinutes  int
	minPercent  int
	exclusions  []string
	runID       string
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <session-export.csv>",
		Short: "Parse a session export and open a review run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			loc := cfg.Location()
			window, err := opts.window(cmd, loc, cfg.Attendance.MinMinutes, cfg.Attendance.MinWindowPercent)
			if err != nil {
				return err
			}

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open session export: %w", err)
			}
			defer f.Close()

			exclusions := append(append([]string(nil), cfg.Attendance.Exclusions...), opts.exclusions...)
			return ctx.withStore(cmd.Context(), func(store registry.Store) error {
				pipeline := reconcile.New(store, ctx.log())
				ws, err := pipeline.Run(cmd.Context(), reconcile.Input{
					Source:     f,
					FileName:   filepath.Base(path),
					Window:     window,
					Exclusions: exclusions,
					Location:   loc,
					RunID:      opts.runID,
				})
				if err != nil {
					return err
				}
				if err := ctx.workspaces().Save(ws); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				src := ws.Source()
				fmt.Fprintf(out, "Run %s created for training %s\n", ws.ID(), ws.TrainingID())
				fmt.Fprintf(out, "Rows: %d parsed, %d skipped", src.Records, src.Dropped)
				if src.DerivedDurations > 0 {
					fmt.Fprintf(out, ", %d with recomputed duration", src.DerivedDurations)
				}
				fmt.Fprintln(out)
				fmt.Fprint(out, renderSummary(out, ws.Summary()))
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.trainingID, "training", "t", "", "Training session id")
	flags.StringVar(&opts.liveStart, "live-start", "", "Live session start (YYYY-MM-DD HH:MM)")
	flags.StringVar(&opts.liveEnd, "live-end", "", "Live session end (YYYY-MM-DD HH:MM)")
	flags.StringVar(&opts.windowStart, "window-start", "", "Activity window start (YYYY-MM-DD HH:MM)")
	flags.StringVar(&opts.windowEnd, "window-end", "", "Activity window end (YYYY-MM-DD HH:MM)")
	flags.IntVar(&opts.minMinutes, "min-minutes", 0, "Minimum total minutes (defaults to attendance.min_minutes)")
	flags.IntVar(&opts.minPercent, "min-percent", 0, "Minimum window percentage (defaults to attendance.min_window_percent)")
	flags.StringSliceVar(&opts.exclusions, "exclude", nil, "Additional staff names to exclude")
	flags.StringVar(&opts.runID, "run-id", "", "Run id (generated when empty)")
	return cmd
}

func (o importOptions) window(cmd *cobra.Command, loc *time.Location, defaultMinutes, defaultPercent int) (attendance.WindowConfig, error) {
	cfg := attendance.WindowConfig{
		TrainingID:    strings.TrimSpace(o.trainingID),
		MinMinutes:    defaultMinutes,
		MinPercentage: defaultPercent,
	}
	if cmd.Flags().Changed("min-minutes") {
		cfg.MinMinutes = o.minMinutes
	}
	if cmd.Flags().Changed("min-percent") {
		cfg.MinPercentage = o.minPercent
	}

	for _, field := range []struct {
		flag  string
		value string
		dst   *time.Time
	}{
		{"live-start", o.liveStart, &cfg.LiveStart},
		{"live-end", o.liveEnd, &cfg.LiveEnd},
		{"window-start", o.windowStart, &cfg.WindowStart},
		{"window-end", o.windowEnd, &cfg.WindowEnd},
	} {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		ts, ok := sessionlog.ParseTimestamp(field.value, loc)
		if !ok {
			return cfg, fmt.Errorf("--%s: cannot parse %q", field.flag, field.value)
		}
		*field.dst = ts
	}
	return cfg, nil
}

func renderSummary(out io.Writer, s review.ValidationResult) string {
	rows := [][]string{
		{"Participants", fmt.Sprint(s.Participants)},
		{"Active", fmt.Sprint(s.Active)},
		{"Excluded", fmt.Sprint(s.Excluded)},
		{"Removed (merged)", fmt.Sprint(s.Removed)},
		{"Approved", fmt.Sprint(s.Approved)},
		{"Rejected", fmt.Sprint(s.Rejected)},
		{"Manual overrides", fmt.Sprint(s.ManualOverrides)},
		{"Auto-matched", fmt.Sprint(s.AutoMatched)},
		{"Suggested", fmt.Sprint(s.Suggested)},
		{"Pending", fmt.Sprint(s.Pending)},
		{"Confirmed", fmt.Sprint(s.Confirmed)},
		{"Not found", fmt.Sprint(s.NotFound)},
		{"Doubt", fmt.Sprint(s.Doubt)},
		{"Ready to commit", yesNo(s.Ready)},
	}
	return renderTable(out, []string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}
