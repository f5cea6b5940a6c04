package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/jobs"
	"scribe/internal/services"
	"scribe/internal/timeline"
	"scribe/internal/transcript"
)

// Service transcribes audio windows by shelling out to a whisper.cpp
// style CLI. Each window is extracted with ffmpeg first, transcribed,
// and returned with segment timings shifted onto the source timeline.
type Service struct {
	binary       string
	ffmpegBinary string
	model        string
	chunkTimeout time.Duration

	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New builds a service from the engine configuration.
func New(cfg config.Engine) *Service {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = "whisper-cli"
	}
	ffmpegBinary := strings.TrimSpace(cfg.FFmpegBinary)
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	var timeout time.Duration
	if cfg.ChunkTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.ChunkTimeoutSeconds) * time.Second
	}
	return &Service{
		binary:       binary,
		ffmpegBinary: ffmpegBinary,
		model:        cfg.Model,
		chunkTimeout: timeout,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string { return s.model }

// ExtractWindow cuts one planner window out of source into a mono 16kHz
// WAV at dest, applying per-job noise reduction when requested.
func (s *Service) ExtractWindow(ctx context.Context, source string, window timeline.Window, opts jobs.Options, dest string) error {
	if window.Duration() < 0 {
		return services.Wrap(services.ErrInvalidParameters, "whisper", "extract",
			fmt.Sprintf("window %d has negative duration", window.Index), nil)
	}
	args := buildExtractArgs(source, window.Start, window.Duration(), opts, dest)
	if _, err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrEngineFailure, "whisper", "extract",
			fmt.Sprintf("extract window %d", window.Index), err)
	}
	return nil
}

// TranscribeWindow extracts and transcribes a single window. Segment
// timings in the result are absolute on the source timeline.
func (s *Service) TranscribeWindow(ctx context.Context, source string, window timeline.Window, language string, opts jobs.Options, workDir string) (transcript.ChunkResult, error) {
	result := transcript.ChunkResult{
		Index:       window.Index,
		WindowStart: window.Start,
		WindowEnd:   window.End,
	}
	if workDir == "" {
		return result, services.Wrap(services.ErrInvalidParameters, "whisper", "transcribe", "work directory is required", nil)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrEngineFailure, "whisper", "transcribe", "ensure work directory", err)
	}

	if s.chunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.chunkTimeout)
		defer cancel()
	}

	base := chunkBaseName(window.Index)
	wavPath := filepath.Join(workDir, base+".wav")
	if err := s.ExtractWindow(ctx, source, window, opts, wavPath); err != nil {
		return result, err
	}
	defer os.Remove(wavPath)

	outputPrefix := filepath.Join(workDir, base)
	args := s.buildTranscribeArgs(wavPath, outputPrefix, language, opts)
	if _, err := s.run(ctx, s.binary, args...); err != nil {
		return result, services.Wrap(services.ErrEngineFailure, "whisper", "transcribe",
			fmt.Sprintf("transcribe window %d", window.Index), err)
	}

	jsonPath := outputPrefix + ".json"
	defer os.Remove(jsonPath)
	text, segments, err := loadPayload(jsonPath)
	if err != nil {
		return result, services.Wrap(services.ErrEngineFailure, "whisper", "transcribe",
			fmt.Sprintf("read output for window %d", window.Index), err)
	}

	result.Text = text
	result.Segments = transcript.Offset(segments, window.Start)
	return result, nil
}

func (s *Service) buildTranscribeArgs(wavPath, outputPrefix, language string, opts jobs.Options) []string {
	args := []string{
		"-f", wavPath,
		"-oj",
		"-of", outputPrefix,
		"-np",
	}
	if s.model != "" {
		args = append(args, "-m", s.model)
	}
	if language != "" {
		args = append(args, "-l", language)
	} else {
		args = append(args, "-l", "auto")
	}
	if opts.VAD {
		args = append(args, "--vad")
		if opts.VADAggressiveness > 0 {
			args = append(args, "--vad-threshold", vadThreshold(opts.VADAggressiveness))
		}
	}
	if opts.Translate {
		args = append(args, "-tr")
	}
	if opts.BeamSize > 0 {
		args = append(args, "-bs", strconv.Itoa(opts.BeamSize))
	}
	return args
}

// vadThreshold maps the 0-3 aggressiveness scale onto the CLI's speech
// probability threshold.
func vadThreshold(aggressiveness int) string {
	if aggressiveness > 3 {
		aggressiveness = 3
	}
	return strconv.FormatFloat(0.35+0.15*float64(aggressiveness), 'f', 2, 64)
}

func (s *Service) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

// payload mirrors the JSON file the CLI writes next to the input.
type payload struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// loadPayload reads the CLI's JSON output and converts it to segments
// with chunk-relative timings in seconds.
func loadPayload(jsonPath string) (string, []transcript.Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", nil, err
	}
	return parsePayload(data)
}

func parsePayload(data []byte) (string, []transcript.Segment, error) {
	var decoded payload
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", nil, fmt.Errorf("parse transcription output: %w", err)
	}

	var parts []string
	segments := make([]transcript.Segment, 0, len(decoded.Transcription))
	for _, entry := range decoded.Transcription {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		segments = append(segments, transcript.Segment{
			Start: float64(entry.Offsets.From) / 1000,
			End:   float64(entry.Offsets.To) / 1000,
			Text:  text,
		})
	}
	if len(segments) == 0 {
		segments = nil
	}
	return strings.Join(parts, " "), segments, nil
}
