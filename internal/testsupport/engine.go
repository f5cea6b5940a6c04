package testsupport

import (
	"context"
	"fmt"

	"scribe/internal/jobs"
	"scribe/internal/timeline"
	"scribe/internal/transcript"
)

// CannedEngine is a transcription engine that fabricates deterministic
// text per window. It satisfies the runner's Engine interface without
// touching external binaries.
type CannedEngine struct {
	// Err, when set, is returned for every window.
	Err error
}

// TranscribeWindow returns a synthetic chunk result covering the window.
func (e *CannedEngine) TranscribeWindow(_ context.Context, _ string, window timeline.Window, _ string, _ jobs.Options, _ string) (transcript.ChunkResult, error) {
	if e.Err != nil {
		return transcript.ChunkResult{}, e.Err
	}
	text := fmt.Sprintf("chunk %d text", window.Index+1)
	return transcript.ChunkResult{
		Index:       window.Index,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		Text:        text,
		Segments: []transcript.Segment{
			{Start: window.Start + 3, End: window.End, Text: text},
		},
	}, nil
}
