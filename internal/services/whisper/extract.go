package whisper

import (
	"fmt"
	"strconv"

	"scribe/internal/jobs"
)

// buildExtractArgs assembles the ffmpeg invocation that cuts one window
// out of the source and downmixes it to mono 16kHz PCM, the input format
// the transcription binary expects. A negative duration extracts from
// start to the end of the stream.
func buildExtractArgs(source string, startSec, durationSec float64, opts jobs.Options, dest string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(startSec),
	}
	if durationSec >= 0 {
		args = append(args, "-t", formatSeconds(durationSec))
	}
	args = append(args,
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
	)
	if opts.NoiseReduction {
		args = append(args, "-af", noiseFilter(opts.NoiseReductionStrength))
	}
	args = append(args,
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	)
	return args
}

// noiseFilter maps the 0-1 strength fraction onto afftdn's noise floor
// reduction in dB. Zero strength keeps the filter default.
func noiseFilter(strength float64) string {
	if strength <= 0 {
		return "afftdn"
	}
	if strength > 1 {
		strength = 1
	}
	return fmt.Sprintf("afftdn=nr=%.1f", 6+strength*24)
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

func chunkBaseName(index int) string {
	return fmt.Sprintf("chunk_%04d", index)
}
