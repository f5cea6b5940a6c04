// Package whisper wraps the external transcription CLI. It extracts
// planner windows with ffmpeg, feeds them to the binary, and parses the
// JSON it writes back into timeline-aligned segments.
package whisper
