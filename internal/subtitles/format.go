package subtitles

import (
	"fmt"
	"strings"

	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Kind selects a transcript output format.
type Kind string

const (
	KindText        Kind = "text"
	KindSRT         Kind = "srt"
	KindVTT         Kind = "vtt"
	KindTimestamped Kind = "timestamped"
)

var kindSet = map[Kind]struct{}{
	KindText:        {},
	KindSRT:         {},
	KindVTT:         {},
	KindTimestamped: {},
}

// Kinds lists the supported formats in presentation order.
func Kinds() []Kind {
	return []Kind{KindText, KindSRT, KindVTT, KindTimestamped}
}

// ParseKind normalizes a format string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return KindText, true
	}
	// "txt" is the timestamped plain-text format in the upstream API.
	if normalized == "txt" {
		return KindTimestamped, true
	}
	_, ok := kindSet[normalized]
	return normalized, ok
}

// RequiresSegments reports whether a format needs timestamped segments.
func (k Kind) RequiresSegments() bool {
	return k != KindText
}

// Render formats a merged transcript. Pure function over its inputs; segment
// formats fail when the engine produced no timestamps.
func Render(result transcript.Result, kind Kind) (string, error) {
	switch kind {
	case KindText:
		return result.Text, nil
	case KindSRT:
		if len(result.Segments) == 0 {
			return "", services.Wrap(services.ErrInvalidParameters, "subtitles", "render",
				"segments not available for srt format", nil)
		}
		return ToSRT(result.Segments), nil
	case KindVTT:
		if len(result.Segments) == 0 {
			return "", services.Wrap(services.ErrInvalidParameters, "subtitles", "render",
				"segments not available for vtt format", nil)
		}
		return ToVTT(result.Segments), nil
	case KindTimestamped:
		if len(result.Segments) == 0 {
			return "", services.Wrap(services.ErrInvalidParameters, "subtitles", "render",
				"segments not available for timestamped format", nil)
		}
		return ToTimestampedText(result.Segments), nil
	default:
		return "", services.Wrap(services.ErrInvalidParameters, "subtitles", "render",
			fmt.Sprintf("unsupported format %q", string(kind)), nil)
	}
}

// ToSRT renders segments as SubRip cues.
func ToSRT(segments []transcript.Segment) string {
	var b strings.Builder
	index := 0
	for _, seg := range segments {
		text := collapseWhitespace(seg.Text)
		if text == "" {
			continue
		}
		index++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			index, srtTimestamp(seg.Start), srtTimestamp(seg.End), text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ToVTT renders segments as WebVTT cues.
func ToVTT(segments []transcript.Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range segments {
		text := collapseWhitespace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n",
			vttTimestamp(seg.Start), vttTimestamp(seg.End), text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ToTimestampedText renders segments as bracketed timestamp lines.
func ToTimestampedText(segments []transcript.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := collapseWhitespace(seg.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s --> %s] %s",
			srtTimestamp(seg.Start), srtTimestamp(seg.End), text))
	}
	return strings.Join(lines, "\n")
}

// FileExtension returns the conventional extension for saved output.
func (k Kind) FileExtension() string {
	switch k {
	case KindSRT:
		return ".srt"
	case KindVTT:
		return ".vtt"
	default:
		return ".txt"
	}
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(seconds float64) string {
	h, m, s, ms := splitTimestamp(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// vttTimestamp formats seconds as HH:MM:SS.mmm.
func vttTimestamp(seconds float64) string {
	h, m, s, ms := splitTimestamp(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitTimestamp(seconds float64) (int, int, int, int) {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	ms := int((seconds - float64(total)) * 1000)
	return total / 3600, (total % 3600) / 60, total % 60, ms
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
