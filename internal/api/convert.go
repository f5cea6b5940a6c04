package api

import (
	"scribe/internal/jobs"
	"scribe/internal/progress"
	"scribe/internal/transcript"
)

// FromJob converts a registry snapshot into its wire form. The
// accumulated text is included so pollers see partial transcripts.
func FromJob(job *jobs.Job) JobView {
	if job == nil {
		return JobView{}
	}
	return JobView{
		ID:              job.ID,
		SourcePath:      job.SourcePath,
		SourceName:      job.SourceName,
		Status:          string(job.Status),
		Progress:        job.Progress,
		CurrentChunk:    job.CurrentChunk,
		TotalChunks:     job.TotalChunks,
		Language:        job.Language,
		DurationSeconds: job.DurationSeconds,
		ChunkSeconds:    job.ChunkSeconds,
		OverlapSeconds:  job.OverlapSeconds,
		Text:            job.AccumulatedText,
		Error:           job.ErrorMessage,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}

// FromJobs converts a listing.
func FromJobs(list []*jobs.Job) []JobView {
	if len(list) == 0 {
		return nil
	}
	out := make([]JobView, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}

// FromProgressEvent converts one hub event.
func FromProgressEvent(evt progress.Event) ProgressEvent {
	return ProgressEvent{
		Sequence:     evt.Sequence,
		Timestamp:    evt.Timestamp,
		Type:         string(evt.Type),
		JobID:        evt.JobID,
		Status:       string(evt.Status),
		Progress:     evt.Progress,
		CurrentChunk: evt.CurrentChunk,
		TotalChunks:  evt.TotalChunks,
		ChunkText:    evt.ChunkText,
		Error:        evt.Error,
	}
}

// FromProgressEvents converts a batch of hub events.
func FromProgressEvents(events []progress.Event) []ProgressEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]ProgressEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, FromProgressEvent(evt))
	}
	return out
}

// FromSegments converts merged transcript segments.
func FromSegments(segments []transcript.Segment) []SegmentView {
	if len(segments) == 0 {
		return nil
	}
	out := make([]SegmentView, 0, len(segments))
	for _, seg := range segments {
		out = append(out, SegmentView{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return out
}
