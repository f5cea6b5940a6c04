package subtitles_test

import (
	"errors"
	"strings"
	"testing"

	"scribe/internal/services"
	"scribe/internal/subtitles"
	"scribe/internal/transcript"
)

var sample = []transcript.Segment{
	{Start: 0, End: 2.5, Text: "  hello \n world "},
	{Start: 3661.25, End: 3662, Text: "later"},
	{Start: 3700, End: 3701, Text: "   "},
}

func TestToSRT(t *testing.T) {
	got := subtitles.ToSRT(sample)
	want := strings.Join([]string{
		"1",
		"00:00:00,000 --> 00:00:02,500",
		"hello world",
		"",
		"2",
		"01:01:01,250 --> 01:01:02,000",
		"later",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected srt output:\n%s", got)
	}
}

func TestToVTT(t *testing.T) {
	got := subtitles.ToVTT(sample)
	if !strings.HasPrefix(got, "WEBVTT\n\n") {
		t.Fatalf("missing WEBVTT header:\n%s", got)
	}
	if !strings.Contains(got, "00:00:00.000 --> 00:00:02.500\nhello world") {
		t.Fatalf("missing first cue:\n%s", got)
	}
	if strings.Contains(got, ",") {
		t.Fatalf("vtt timestamps must use periods:\n%s", got)
	}
}

func TestToTimestampedText(t *testing.T) {
	got := subtitles.ToTimestampedText(sample)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected empty segments skipped, got %d lines", len(lines))
	}
	if lines[0] != "[00:00:00,000 --> 00:00:02,500] hello world" {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]subtitles.Kind{
		"":            subtitles.KindText,
		"text":        subtitles.KindText,
		"SRT":         subtitles.KindSRT,
		"vtt":         subtitles.KindVTT,
		"txt":         subtitles.KindTimestamped,
		"timestamped": subtitles.KindTimestamped,
	}
	for input, want := range cases {
		kind, ok := subtitles.ParseKind(input)
		if !ok || kind != want {
			t.Fatalf("ParseKind(%q) = %v,%v want %v", input, kind, ok, want)
		}
	}
	if _, ok := subtitles.ParseKind("pdf"); ok {
		t.Fatal("expected unknown format to be rejected")
	}
}

func TestRenderWithoutSegments(t *testing.T) {
	result := transcript.Result{Text: "plain only"}
	text, err := subtitles.Render(result, subtitles.KindText)
	if err != nil || text != "plain only" {
		t.Fatalf("text render: %q err=%v", text, err)
	}
	if _, err := subtitles.Render(result, subtitles.KindSRT); !errors.Is(err, services.ErrInvalidParameters) {
		t.Fatalf("expected invalid parameters for srt without segments, got %v", err)
	}
}
