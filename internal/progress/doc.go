// Package progress fans transcription progress out to watchers. It keeps
// a bounded event history for long-poll catch-up, the latest snapshot per
// job for pollers, and best-effort push delivery for live subscribers.
package progress
