package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List transcription jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := ctx.client().List(cmd.Context(), statusFilters)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			fmt.Fprintln(out, renderJobTable(views, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Only show jobs with these statuses")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the job list as JSON")

	return cmd
}

func renderJobTable(views []api.JobView, colorize bool) string {
	headers := []string{"ID", "Source", "Status", "Progress", "Chunks", "Duration", "Updated"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, []string{
			shortJobID(view.ID),
			view.SourceName,
			colorizeStatus(view.Status, colorize),
			strconv.Itoa(view.Progress) + "%",
			chunkFraction(view),
			formatDuration(view.DurationSeconds),
			view.UpdatedAt.Local().Format("15:04:05"),
		})
	}
	return renderTable(headers, rows, aligns)
}

func shortJobID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func chunkFraction(view api.JobView) string {
	if view.TotalChunks == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", view.CurrentChunk, view.TotalChunks)
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}
