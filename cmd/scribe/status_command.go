package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/deps"
	"scribe/internal/language"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show daemon health or one job's progress",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return describeJob(cmd, ctx, args[0], jsonOutput)
			}
			return describeDaemon(cmd, ctx, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit status as JSON")
	return cmd
}

func describeDaemon(cmd *cobra.Command, ctx *commandContext, jsonOutput bool) error {
	health, err := ctx.client().Health(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, health)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Daemon:      %s (%s)\n", health.Status, ctx.apiAddr())
	fmt.Fprintf(out, "Active jobs: %d\n", health.ActiveJobs)
	fmt.Fprintf(out, "Total jobs:  %d\n", health.TotalJobs)
	fmt.Fprintf(out, "Engine:      %s\n", readiness(health.EngineReady))

	if cfg := ctx.configValue(); cfg != nil {
		fmt.Fprintln(out, "Dependencies:")
		for _, status := range deps.CheckBinaries(deps.TranscriptionRequirements(cfg.Engine)) {
			marker := "ok"
			if !status.Available {
				marker = "missing: " + status.Detail
			}
			fmt.Fprintf(out, "  %-8s %s (%s)\n", status.Name, marker, status.Command)
		}
	}
	return nil
}

func describeJob(cmd *cobra.Command, ctx *commandContext, id string, jsonOutput bool) error {
	job, err := ctx.client().Describe(cmd.Context(), id)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, job)
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintf(out, "Job:      %s\n", job.ID)
	fmt.Fprintf(out, "Source:   %s\n", job.SourcePath)
	fmt.Fprintf(out, "Status:   %s\n", renderProgressLine(progressView{
		Status:       job.Status,
		Progress:     job.Progress,
		CurrentChunk: job.CurrentChunk,
		TotalChunks:  job.TotalChunks,
	}, colorize))
	fmt.Fprintf(out, "Language: %s\n", language.DisplayName(job.Language))
	if job.DurationSeconds > 0 {
		fmt.Fprintf(out, "Duration: %s\n", formatDuration(job.DurationSeconds))
	}
	if job.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", job.Error)
	}
	return nil
}

func readiness(ready bool) string {
	if ready {
		return "ready"
	}
	return "missing binaries"
}
