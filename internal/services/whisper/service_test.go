package whisper

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"scribe/internal/config"
	"scribe/internal/jobs"
	"scribe/internal/services"
	"scribe/internal/timeline"
)

const samplePayload = `{
  "transcription": [
    {"offsets": {"from": 0, "to": 2500}, "text": " hello there "},
    {"offsets": {"from": 2500, "to": 5000}, "text": "general remarks"},
    {"offsets": {"from": 5000, "to": 5200}, "text": "   "}
  ]
}`

func newTestService() *Service {
	return New(config.Engine{Binary: "whisper-cli", FFmpegBinary: "ffmpeg", Model: "base"})
}

func TestParsePayload(t *testing.T) {
	text, segments, err := parsePayload([]byte(samplePayload))
	if err != nil {
		t.Fatalf("parsePayload() error = %v", err)
	}
	if text != "hello there general remarks" {
		t.Fatalf("text = %q", text)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2 (blank entries skipped)", len(segments))
	}
	if segments[0].Start != 0 || segments[0].End != 2.5 {
		t.Fatalf("segment timing = [%v, %v]", segments[0].Start, segments[0].End)
	}
	if segments[1].Text != "general remarks" {
		t.Fatalf("segment text = %q", segments[1].Text)
	}
}

func TestParsePayloadRejectsGarbage(t *testing.T) {
	if _, _, err := parsePayload([]byte("nope")); err == nil {
		t.Fatal("parsePayload() accepted invalid JSON")
	}
}

func TestBuildExtractArgs(t *testing.T) {
	args := buildExtractArgs("/media/talk.mp3", 27, 30, jobs.Options{}, "/work/chunk_0001.wav")
	joined := strings.Join(args, " ")
	for _, want := range []string{"-ss 27.000", "-t 30.000", "-ac 1", "-ar 16000", "pcm_s16le"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
	if strings.Contains(joined, "afftdn") {
		t.Fatalf("args %q apply noise reduction without it being requested", joined)
	}
}

func TestBuildExtractArgsAppliesNoiseReduction(t *testing.T) {
	opts := jobs.Options{NoiseReduction: true, NoiseReductionStrength: 0.5}
	args := buildExtractArgs("/media/talk.mp3", 0, 30, opts, "/work/chunk_0000.wav")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-af afftdn=nr=18.0") {
		t.Fatalf("args %q missing noise reduction filter", joined)
	}

	// Zero strength keeps the filter at its default noise floor.
	if got := noiseFilter(0); got != "afftdn" {
		t.Fatalf("noiseFilter(0) = %q, want afftdn", got)
	}
	if got := noiseFilter(2); got != "afftdn=nr=30.0" {
		t.Fatalf("noiseFilter(2) = %q, want clamped afftdn=nr=30.0", got)
	}
}

func TestTranscribeWindowRunsExtractThenTranscribe(t *testing.T) {
	service := newTestService()
	workDir := t.TempDir()

	var calls []string
	service.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, name)
		switch name {
		case "ffmpeg":
			dest := args[len(args)-1]
			if err := os.WriteFile(dest, []byte("wav"), 0o644); err != nil {
				t.Fatalf("write fake wav: %v", err)
			}
		case "whisper-cli":
			prefix := argValue(t, args, "-of")
			if lang := argValue(t, args, "-l"); lang != "en" {
				t.Fatalf("language arg = %q, want en", lang)
			}
			if err := os.WriteFile(prefix+".json", []byte(samplePayload), 0o644); err != nil {
				t.Fatalf("write fake payload: %v", err)
			}
		default:
			t.Fatalf("unexpected command %s", name)
		}
		return nil, nil
	})

	window := timeline.Window{Index: 1, Start: 27, End: 57}
	result, err := service.TranscribeWindow(context.Background(), "/media/talk.mp3", window, "en", jobs.Options{}, workDir)
	if err != nil {
		t.Fatalf("TranscribeWindow() error = %v", err)
	}
	if len(calls) != 2 || calls[0] != "ffmpeg" || calls[1] != "whisper-cli" {
		t.Fatalf("calls = %v", calls)
	}
	if result.Text != "hello there general remarks" {
		t.Fatalf("Text = %q", result.Text)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(result.Segments))
	}
	// Timings are shifted onto the source timeline.
	if result.Segments[0].Start != 27 || result.Segments[0].End != 29.5 {
		t.Fatalf("segment timing = [%v, %v], want [27, 29.5]", result.Segments[0].Start, result.Segments[0].End)
	}
	if result.WindowStart != 27 || result.WindowEnd != 57 {
		t.Fatalf("window bounds = [%v, %v]", result.WindowStart, result.WindowEnd)
	}

	// Intermediate files are cleaned up.
	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir still holds %d files", len(entries))
	}
}

func TestTranscribeWindowWrapsEngineFailure(t *testing.T) {
	service := newTestService()
	service.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("boom")
	})

	_, err := service.TranscribeWindow(context.Background(), "/media/talk.mp3",
		timeline.Window{Index: 0, Start: 0, End: 30}, "", jobs.Options{}, t.TempDir())
	if !errors.Is(err, services.ErrEngineFailure) {
		t.Fatalf("TranscribeWindow() error = %v, want ErrEngineFailure", err)
	}
}

func TestTranscribeWindowRequiresWorkDir(t *testing.T) {
	service := newTestService()

	_, err := service.TranscribeWindow(context.Background(), "/media/talk.mp3",
		timeline.Window{Index: 0, Start: 0, End: 30}, "", jobs.Options{}, "")
	if !errors.Is(err, services.ErrInvalidParameters) {
		t.Fatalf("TranscribeWindow() error = %v, want ErrInvalidParameters", err)
	}
}

func argValue(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	t.Fatalf("flag %s missing from %v", flag, args)
	return ""
}

func TestChunkBaseName(t *testing.T) {
	if got := chunkBaseName(3); got != "chunk_0003" {
		t.Fatalf("chunkBaseName(3) = %q", got)
	}
}

func TestTranscribeWindowForwardsEngineOptions(t *testing.T) {
	service := newTestService()

	var whisperArgs []string
	service.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		switch name {
		case "ffmpeg":
			dest := args[len(args)-1]
			if err := os.WriteFile(dest, []byte("wav"), 0o644); err != nil {
				t.Fatalf("write fake wav: %v", err)
			}
		case "whisper-cli":
			whisperArgs = args
			prefix := argValue(t, args, "-of")
			if err := os.WriteFile(prefix+".json", []byte(samplePayload), 0o644); err != nil {
				t.Fatalf("write fake payload: %v", err)
			}
		}
		return nil, nil
	})

	opts := jobs.Options{VAD: true, VADAggressiveness: 2, Translate: true, BeamSize: 5}
	window := timeline.Window{Index: 0, Start: 0, End: 30}
	if _, err := service.TranscribeWindow(context.Background(), "/media/talk.mp3", window, "", opts, t.TempDir()); err != nil {
		t.Fatalf("TranscribeWindow() error = %v", err)
	}

	joined := " " + strings.Join(whisperArgs, " ") + " "
	for _, flag := range []string{" --vad ", " -tr ", " -bs 5 ", " --vad-threshold 0.65 "} {
		if !strings.Contains(joined, flag) {
			t.Fatalf("whisper args %v missing %q", whisperArgs, strings.TrimSpace(flag))
		}
	}
	if argValue(t, whisperArgs, "-l") != "auto" {
		t.Fatalf("expected auto language, args %v", whisperArgs)
	}
}
