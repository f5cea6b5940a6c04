package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a transcription job.
type Status string

const (
	StatusQueued       Status = "queued"
	StatusChunking     Status = "chunking"
	StatusTranscribing Status = "transcribing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

// DaemonStopReason is the error message set when jobs are cancelled because
// the daemon shut down.
const DaemonStopReason = "daemon stopped"

var allStatuses = []Status{
	StatusQueued,
	StatusChunking,
	StatusTranscribing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// statusRank orders the forward progression of active states. Terminal states
// share the highest rank so no transition can leave them.
var statusRank = map[Status]int{
	StatusQueued:       0,
	StatusChunking:     1,
	StatusTranscribing: 2,
	StatusCompleted:    3,
	StatusFailed:       3,
	StatusCancelled:    3,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further transition may leave the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether a job in this status is still being driven.
func (s Status) IsActive() bool {
	_, known := statusSet[s]
	return known && !s.IsTerminal()
}

// CanTransition reports whether moving from s to next honors the state
// machine: strictly forward through the active states, failure only out of
// transcribing, cancellation out of any non-terminal state, and no exit from
// a terminal state.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	switch next {
	case StatusCancelled:
		return true
	case StatusFailed:
		return s == StatusTranscribing
	case StatusCompleted:
		return s == StatusTranscribing
	default:
		from, okFrom := statusRank[s]
		to, okTo := statusRank[next]
		return okFrom && okTo && to == from+1
	}
}

// Job is one transcription request tracked by the registry. The registry owns
// the canonical copy; everything handed to readers is a snapshot.
type Job struct {
	ID              string
	SourcePath      string
	SourceName      string
	Status          Status
	Progress        int
	CurrentChunk    int
	TotalChunks     int
	AccumulatedText string
	SegmentsJSON    string
	Language        string
	DurationSeconds float64
	ChunkSeconds    float64
	OverlapSeconds  float64
	OptionsJSON     string
	ErrorMessage    string
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SetProgress updates the chunk counters and progress percentage together.
// Progress never moves backwards.
func (j *Job) SetProgress(currentChunk, totalChunks int) {
	j.CurrentChunk = currentChunk
	j.TotalChunks = totalChunks
	if totalChunks > 0 {
		if pct := currentChunk * 100 / totalChunks; pct > j.Progress {
			j.Progress = pct
		}
	}
}

// SetCompleted marks the job as successfully finished.
func (j *Job) SetCompleted(text, segmentsJSON string) {
	j.Status = StatusCompleted
	j.AccumulatedText = text
	j.SegmentsJSON = segmentsJSON
	j.Progress = 100
	j.ErrorMessage = ""
}

// SetFailed marks the job as failed with a human-readable cause.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
}

// SetCancelled marks the job as cancelled, retaining partial text.
func (j *Job) SetCancelled() {
	j.Status = StatusCancelled
}

// Snapshot returns a copy safe to hand across the registry boundary.
func (j *Job) Snapshot() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	return &cp
}
