// Package testsupport holds shared helpers for package tests: temp-dir
// configs, registry construction, and a canned transcription engine.
package testsupport

import (
	"path/filepath"
	"testing"

	"scribe/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Jobs.MaxConcurrent = 2

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMaxConcurrent overrides the worker limit on the test config.
func WithMaxConcurrent(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Jobs.MaxConcurrent = n
	}
}

// WithRetention overrides eviction settings on the test config.
func WithRetention(minutes, maxJobs int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Jobs.RetentionMinutes = minutes
		cfg.Jobs.MaxJobs = maxJobs
	}
}
