package transcript

import "strings"

// Merger combines per-chunk results into one running transcript, resolving
// overlap duplication. Chunks must be added in index order; the overlap
// tie-break depends on sequential arrival.
//
// Ownership of an overlap region belongs to the earlier chunk: any segment of
// a later chunk whose start falls strictly inside the overlap with the
// previous window is dropped as a duplicate. No text-similarity matching is
// attempted. Chunks that carry no per-segment timestamps fall back to plain
// string concatenation with a single-space separator; time-based
// deduplication is skipped for them.
type Merger struct {
	overlap  float64
	parts    []string
	segments []Segment
	started  bool
}

// NewMerger constructs a merger for chunks planned with the given overlap.
func NewMerger(overlapSeconds float64) *Merger {
	if overlapSeconds < 0 {
		overlapSeconds = 0
	}
	return &Merger{overlap: overlapSeconds}
}

// Add folds one chunk result into the running transcript.
func (m *Merger) Add(result ChunkResult) {
	if len(result.Segments) == 0 {
		if text := strings.TrimSpace(result.Text); text != "" {
			m.parts = append(m.parts, text)
		}
		m.started = true
		return
	}

	// Segments starting before this boundary duplicate content the previous
	// chunk already emitted.
	boundary := result.WindowStart + m.overlap
	first := !m.started
	for _, seg := range result.Segments {
		if !first && seg.Start < boundary {
			continue
		}
		m.segments = append(m.segments, seg)
		if text := strings.TrimSpace(seg.Text); text != "" {
			m.parts = append(m.parts, text)
		}
	}
	m.started = true
}

// Text returns the transcript accumulated so far.
func (m *Merger) Text() string {
	return strings.Join(m.parts, " ")
}

// Segments returns the retained segment list accumulated so far.
func (m *Merger) Segments() []Segment {
	out := make([]Segment, len(m.segments))
	copy(out, m.segments)
	return out
}

// Result snapshots the merged transcript.
func (m *Merger) Result() Result {
	return Result{Text: m.Text(), Segments: m.Segments()}
}

// Merge combines an ordered slice of chunk results in one pass.
func Merge(results []ChunkResult, overlapSeconds float64) Result {
	merger := NewMerger(overlapSeconds)
	for _, result := range results {
		merger.Add(result)
	}
	return merger.Result()
}
