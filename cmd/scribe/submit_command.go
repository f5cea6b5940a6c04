package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var language string
	var chunkSeconds float64
	var overlapSeconds float64
	var vad bool
	var vadAggressiveness int
	var translate bool
	var beamSize int
	var noiseReduction bool
	var noiseStrength float64
	var jsonOutput bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "submit <media-file>",
		Short: "Queue a media file for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := filepath.Abs(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve source path: %w", err)
			}

			job, err := ctx.client().Submit(cmd.Context(), api.SubmitJobRequest{
				SourcePath:             source,
				Language:               language,
				ChunkSeconds:           chunkSeconds,
				OverlapSeconds:         overlapSeconds,
				VAD:                    vad,
				VADAggressiveness:      vadAggressiveness,
				Translate:              translate,
				BeamSize:               beamSize,
				NoiseReduction:         noiseReduction,
				NoiseReductionStrength: noiseStrength,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := writeJSON(cmd, job); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as job %s\n", job.SourceName, job.ID)
			}

			if watch {
				return watchJob(cmd, ctx, job.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Spoken language hint (auto-detect when empty)")
	cmd.Flags().Float64Var(&chunkSeconds, "chunk", 0, "Chunk length in seconds (daemon default when 0)")
	cmd.Flags().Float64Var(&overlapSeconds, "overlap", 0, "Chunk overlap in seconds (daemon default when 0)")
	cmd.Flags().BoolVar(&vad, "vad", false, "Enable voice activity detection in the engine")
	cmd.Flags().IntVar(&vadAggressiveness, "vad-aggressiveness", 0, "Voice detection aggressiveness, 0-3")
	cmd.Flags().BoolVar(&translate, "translate", false, "Translate the transcript to English")
	cmd.Flags().IntVar(&beamSize, "beam-size", 0, "Decoder beam size (engine default when 0)")
	cmd.Flags().BoolVar(&noiseReduction, "noise-reduction", false, "Denoise the audio before transcription")
	cmd.Flags().Float64Var(&noiseStrength, "noise-strength", 0, "Noise reduction strength, 0-1 (filter default when 0)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the created job as JSON")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Stay attached and stream progress until the job finishes")

	return cmd
}
