package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/jobs"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Stream a job's progress until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchJob(cmd, ctx, args[0])
		},
	}
}

// watchJob long-polls the event feed and prints one line per update. It
// returns once the job reaches a terminal status.
func watchJob(cmd *cobra.Command, ctx *commandContext, jobID string) error {
	client := ctx.client()
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	job, err := client.Describe(cmd.Context(), jobID)
	if err != nil {
		return err
	}
	printWatchLine(out, api.ProgressEvent{
		Status:       job.Status,
		Progress:     job.Progress,
		CurrentChunk: job.CurrentChunk,
		TotalChunks:  job.TotalChunks,
		Error:        job.Error,
	}, colorize)
	if isTerminalStatus(job.Status) {
		return nil
	}

	var since uint64
	for {
		resp, err := client.Events(cmd.Context(), since, jobID, true)
		if err != nil {
			return err
		}
		since = resp.Next
		for _, event := range resp.Events {
			printWatchLine(out, event, colorize)
			if isTerminalStatus(event.Status) {
				return nil
			}
		}
	}
}

func printWatchLine(out io.Writer, event api.ProgressEvent, colorize bool) {
	line := renderProgressLine(progressView{
		Status:       event.Status,
		Progress:     event.Progress,
		CurrentChunk: event.CurrentChunk,
		TotalChunks:  event.TotalChunks,
	}, colorize)
	if event.Error != "" {
		line += "  " + event.Error
	}
	fmt.Fprintln(out, line)
}

func isTerminalStatus(status string) bool {
	parsed, ok := jobs.ParseStatus(status)
	return ok && parsed.IsTerminal()
}
