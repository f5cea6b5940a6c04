// Package jobs tracks transcription jobs from submission to a terminal
// state. The registry is backed by an in-memory SQLite database so the
// daemon holds no job state across restarts.
package jobs
