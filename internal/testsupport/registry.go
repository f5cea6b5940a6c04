package testsupport

import (
	"context"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/jobs"
	"scribe/internal/logging"
)

// MustOpenStore opens an in-memory job store for tests and registers cleanup.
func MustOpenStore(t testing.TB) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(context.Background(), logging.NewNop())
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenRegistry builds a registry over a fresh store using the config's
// eviction settings.
func MustOpenRegistry(t testing.TB, cfg *config.Config) *jobs.Registry {
	t.Helper()

	store := MustOpenStore(t)
	retention := time.Duration(cfg.Jobs.RetentionMinutes) * time.Minute
	return jobs.NewRegistry(store, logging.NewNop(), retention, cfg.Jobs.MaxJobs)
}

// NewJob creates a queued job for tests using the provided registry.
func NewJob(t testing.TB, registry *jobs.Registry, sourcePath string, duration float64) *jobs.Job {
	t.Helper()

	job, err := registry.Create(context.Background(), &jobs.Job{
		SourcePath:      sourcePath,
		DurationSeconds: duration,
		ChunkSeconds:    30,
		OverlapSeconds:  3,
	})
	if err != nil {
		t.Fatalf("registry.Create: %v", err)
	}
	return job
}
