// Package config loads and validates the TOML configuration for scribed.
//
// Configuration sections by subsystem:
//   - Paths: working/log directories and the HTTP API bind address
//   - Jobs: chunking defaults, concurrency bound, and retention/eviction
//   - Engine: external whisper CLI, ffmpeg/ffprobe binaries, chunk timeout
//   - Notifications: optional ntfy push settings
//   - Logging: log format and level
//
// Load applies defaults, expands ~ in path fields, normalizes values, and
// validates before returning; a missing config file is not an error.
package config
