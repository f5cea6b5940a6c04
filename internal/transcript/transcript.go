package transcript

// Segment is one timestamped span of recognized speech. Start and End are
// seconds relative to the whole input once the runner has applied the owning
// window's offset.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// ChunkResult is the engine output for a single planned window. Segments may
// be empty when the engine reports text only.
type ChunkResult struct {
	Index       int
	WindowStart float64
	WindowEnd   float64
	Text        string
	Segments    []Segment
}

// Offset shifts segment timestamps by delta seconds, converting engine-local
// times into whole-input times.
func Offset(segments []Segment, delta float64) []Segment {
	if len(segments) == 0 {
		return nil
	}
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		out[i] = Segment{Start: seg.Start + delta, End: seg.End + delta, Text: seg.Text}
	}
	return out
}

// Result is the merged transcript: the concatenated text and the retained,
// offset-corrected segment list, consumable directly by the subtitle
// formatters.
type Result struct {
	Text     string
	Segments []Segment
}
