package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/subtitles"
)

func newResultCommand(ctx *commandContext) *cobra.Command {
	var format string
	var outputPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "result <job-id>",
		Short: "Fetch a finished transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := ctx.client().Result(cmd.Context(), args[0], format)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, result)
			}

			text := result.Text
			if !strings.HasSuffix(text, "\n") {
				text += "\n"
			}
			if outputPath != "" {
				// Pointing at a directory picks a file name from the job
				// and the format's conventional extension.
				if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
					kind, _ := subtitles.ParseKind(result.Format)
					outputPath = filepath.Join(outputPath, result.JobID+kind.FileExtension())
				}
				if err := os.WriteFile(outputPath, []byte(text), 0o644); err != nil {
					return fmt.Errorf("write transcript: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s transcript to %s\n", result.Format, outputPath)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, srt, vtt, or timestamped")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the transcript to a file instead of stdout")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the full result payload as JSON")

	return cmd
}
