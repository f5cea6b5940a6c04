package api

import "time"

// SubmitJobRequest is the POST /api/jobs payload. Zero-valued chunking
// parameters fall back to the daemon's configured defaults.
type SubmitJobRequest struct {
	SourcePath             string  `json:"sourcePath"`
	Language               string  `json:"language,omitempty"`
	ChunkSeconds           float64 `json:"chunkSeconds,omitempty"`
	OverlapSeconds         float64 `json:"overlapSeconds,omitempty"`
	VAD                    bool    `json:"vad,omitempty"`
	VADAggressiveness      int     `json:"vadAggressiveness,omitempty"`
	Translate              bool    `json:"translate,omitempty"`
	BeamSize               int     `json:"beamSize,omitempty"`
	NoiseReduction         bool    `json:"noiseReductionEnabled,omitempty"`
	NoiseReductionStrength float64 `json:"noiseReductionStrength,omitempty"`
}

// JobView is the wire representation of one job.
type JobView struct {
	ID              string    `json:"id"`
	SourcePath      string    `json:"sourcePath"`
	SourceName      string    `json:"sourceName"`
	Status          string    `json:"status"`
	Progress        int       `json:"progress"`
	CurrentChunk    int       `json:"currentChunk"`
	TotalChunks     int       `json:"totalChunks"`
	Language        string    `json:"language,omitempty"`
	DurationSeconds float64   `json:"durationSeconds"`
	ChunkSeconds    float64   `json:"chunkSeconds"`
	OverlapSeconds  float64   `json:"overlapSeconds"`
	Text            string    `json:"text,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobView `json:"job"`
}

// JobListResponse wraps a job listing.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// SegmentView is one timed segment of a finished transcript.
type SegmentView struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// ResultResponse carries a rendered transcript.
type ResultResponse struct {
	JobID    string        `json:"jobId"`
	Format   string        `json:"format"`
	Text     string        `json:"text"`
	Segments []SegmentView `json:"segments,omitempty"`
}

// ProgressEvent is the wire form of one progress hub event.
type ProgressEvent struct {
	Sequence     uint64    `json:"seq"`
	Timestamp    time.Time `json:"ts"`
	Type         string    `json:"type"`
	JobID        string    `json:"jobId"`
	Status       string    `json:"status"`
	Progress     int       `json:"progress"`
	CurrentChunk int       `json:"currentChunk,omitempty"`
	TotalChunks  int       `json:"totalChunks,omitempty"`
	ChunkText    string    `json:"chunkText,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// EventsResponse wraps a long-poll fetch. Next is the cursor to resume from.
type EventsResponse struct {
	Events []ProgressEvent `json:"events"`
	Next   uint64          `json:"next"`
}

// FormatView describes one supported transcript output format.
type FormatView struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Extension        string `json:"extension"`
	RequiresSegments bool   `json:"requiresSegments"`
}

// FormatListResponse wraps the format listing.
type FormatListResponse struct {
	Formats []FormatView `json:"formats"`
}

// HealthResponse reports daemon liveness, registry occupancy, and whether
// the engine binaries are resolvable.
type HealthResponse struct {
	Status      string `json:"status"`
	ActiveJobs  int    `json:"activeJobs"`
	TotalJobs   int    `json:"totalJobs"`
	EngineReady bool   `json:"engineReady"`
}
