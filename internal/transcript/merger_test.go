package transcript_test

import (
	"testing"

	"scribe/internal/transcript"
)

func TestMergeDropsOverlapDuplicates(t *testing.T) {
	// Chunk 1 covers [0,30]; chunk 2 covers [27,57] with 3s overlap. The
	// second chunk's segment at absolute 28s sits inside the overlap region
	// and must be dropped; its segment at 32s is kept.
	results := []transcript.ChunkResult{
		{
			Index:       0,
			WindowStart: 0,
			WindowEnd:   30,
			Text:        "hello",
			Segments: []transcript.Segment{
				{Start: 0, End: 29, Text: "hello"},
			},
		},
		{
			Index:       1,
			WindowStart: 27,
			WindowEnd:   57,
			Text:        "hello again world",
			Segments: []transcript.Segment{
				{Start: 28, End: 29.5, Text: "hello again"},
				{Start: 32, End: 40, Text: "world"},
			},
		},
	}

	merged := transcript.Merge(results, 3)
	if merged.Text != "hello world" {
		t.Fatalf("unexpected merged text: %q", merged.Text)
	}
	if len(merged.Segments) != 2 {
		t.Fatalf("expected 2 retained segments, got %d: %#v", len(merged.Segments), merged.Segments)
	}
	if merged.Segments[1].Start != 32 {
		t.Fatalf("expected kept segment at 32s, got %+v", merged.Segments[1])
	}
}

func TestMergeKeepsFirstChunkOverlapRegion(t *testing.T) {
	// The first chunk owns its whole window; nothing is dropped from it even
	// when segments start near zero.
	results := []transcript.ChunkResult{
		{
			Index:       0,
			WindowStart: 0,
			WindowEnd:   30,
			Segments: []transcript.Segment{
				{Start: 0.5, End: 2, Text: "first"},
				{Start: 2.5, End: 4, Text: "words"},
			},
		},
	}
	merged := transcript.Merge(results, 3)
	if merged.Text != "first words" {
		t.Fatalf("unexpected text: %q", merged.Text)
	}
	if len(merged.Segments) != 2 {
		t.Fatalf("expected both segments retained, got %d", len(merged.Segments))
	}
}

func TestMergeBoundaryIsStrict(t *testing.T) {
	// A segment starting exactly at the overlap boundary belongs to the
	// later chunk and is kept.
	results := []transcript.ChunkResult{
		{Index: 0, WindowStart: 0, WindowEnd: 30, Segments: []transcript.Segment{{Start: 1, End: 28, Text: "alpha"}}},
		{Index: 1, WindowStart: 27, WindowEnd: 57, Segments: []transcript.Segment{{Start: 30, End: 35, Text: "beta"}}},
	}
	merged := transcript.Merge(results, 3)
	if merged.Text != "alpha beta" {
		t.Fatalf("boundary segment should be kept, got %q", merged.Text)
	}
}

func TestMergeTextOnlyFallback(t *testing.T) {
	results := []transcript.ChunkResult{
		{Index: 0, WindowStart: 0, WindowEnd: 30, Text: "no timestamps here "},
		{Index: 1, WindowStart: 27, WindowEnd: 57, Text: " second chunk"},
	}
	merged := transcript.Merge(results, 3)
	if merged.Text != "no timestamps here second chunk" {
		t.Fatalf("unexpected fallback text: %q", merged.Text)
	}
	if len(merged.Segments) != 0 {
		t.Fatalf("text-only chunks must not fabricate segments, got %d", len(merged.Segments))
	}
}

func TestMergedDurationWithinInput(t *testing.T) {
	results := []transcript.ChunkResult{
		{Index: 0, WindowStart: 0, WindowEnd: 30, Segments: []transcript.Segment{{Start: 0, End: 29, Text: "a"}}},
		{Index: 1, WindowStart: 27, WindowEnd: 57, Segments: []transcript.Segment{
			{Start: 27.5, End: 29, Text: "dup"},
			{Start: 31, End: 56, Text: "b"},
		}},
		{Index: 2, WindowStart: 54, WindowEnd: 60, Segments: []transcript.Segment{
			{Start: 58, End: 60, Text: "c"},
		}},
	}
	merged := transcript.Merge(results, 3)

	var total float64
	for _, seg := range merged.Segments {
		total += seg.End - seg.Start
	}
	if total > 60 {
		t.Fatalf("merged segment duration %g exceeds input duration", total)
	}
}

func TestMergerIncremental(t *testing.T) {
	merger := transcript.NewMerger(3)
	merger.Add(transcript.ChunkResult{Index: 0, WindowStart: 0, WindowEnd: 30,
		Segments: []transcript.Segment{{Start: 1, End: 10, Text: "one"}}})
	if merger.Text() != "one" {
		t.Fatalf("partial text after first chunk: %q", merger.Text())
	}
	merger.Add(transcript.ChunkResult{Index: 1, WindowStart: 27, WindowEnd: 57,
		Segments: []transcript.Segment{{Start: 33, End: 40, Text: "two"}}})
	if merger.Text() != "one two" {
		t.Fatalf("partial text after second chunk: %q", merger.Text())
	}
}

func TestOffsetShiftsTimestamps(t *testing.T) {
	shifted := transcript.Offset([]transcript.Segment{{Start: 1, End: 2, Text: "x"}}, 27)
	if shifted[0].Start != 28 || shifted[0].End != 29 {
		t.Fatalf("unexpected offset result: %+v", shifted[0])
	}
	if transcript.Offset(nil, 10) != nil {
		t.Fatal("offset of empty input should be nil")
	}
}
