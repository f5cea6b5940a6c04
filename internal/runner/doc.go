// Package runner executes transcription jobs end to end: plan the chunk
// windows, feed them to the engine sequentially, merge the overlap, and
// publish progress after every chunk. Jobs run concurrently up to the
// configured limit; cancellation takes effect at chunk boundaries.
package runner
