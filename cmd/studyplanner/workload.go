package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"study-planner/internal/export"
	"study-planner/internal/workload"
)

func newWorkloadCmd(configPath *string) *cobra.Command {
	var (
		telegramID int64
		view       string
		offset     int
		from, to   string
		format     string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "workload",
		Short: "Print or export a user's workload buckets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if telegramID == 0 {
				return fmt.Errorf("--telegram-id is required")
			}
			if format != "yaml" && format != "xlsx" {
				return fmt.Errorf("unknown format %q: use yaml or xlsx", format)
			}

			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			user, err := a.users.FindByTelegramID(ctx, telegramID)
			if err != nil {
				return err
			}

			now := time.Now().In(a.cfg.Location)
			var (
				rows    []export.Row
				summary workload.Summary
				title   string
			)
			switch view {
			case "week":
				buckets, err := a.workload.Week(ctx, user, offset, now)
				if err != nil {
					return err
				}
				rows, summary = export.DayRows(buckets), workload.Summarize(buckets)
				title = "Week of " + buckets[0].Date.Format("2006-01-02")
			case "month":
				buckets, err := a.workload.Month(ctx, user, offset, now)
				if err != nil {
					return err
				}
				rows, summary = export.WeekRows(buckets), workload.Summarize(buckets)
				year, month, _ := now.Date()
				title = time.Date(year, month+time.Month(offset), 1, 0, 0, 0, 0, now.Location()).Format("January 2006")
			case "range":
				buckets, err := a.workload.Range(ctx, user, from, to, now)
				if err != nil {
					return err
				}
				if buckets == nil {
					return fmt.Errorf("invalid range %q..%q: use YYYY-MM-DD with --from not after --to", from, to)
				}
				rows, summary = export.WeekRows(buckets), workload.Summarize(buckets)
				title = from + " .. " + to
			default:
				return fmt.Errorf("unknown view %q: use week, month or range", view)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}

			if format == "xlsx" {
				return export.WriteXLSX(w, title, rows)
			}
			return export.WriteYAML(w, rows, summary)
		},
	}
	cmd.Flags().Int64Var(&telegramID, "telegram-id", 0, "Telegram id of the user")
	cmd.Flags().StringVar(&view, "view", "week", "week|month|range")
	cmd.Flags().IntVar(&offset, "offset", 0, "weeks or months away from now")
	cmd.Flags().StringVar(&from, "from", "", "range start, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "range end, YYYY-MM-DD")
	cmd.Flags().StringVar(&format, "format", "yaml", "yaml|xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
