package jobs

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"scribe/internal/logging"
	"scribe/internal/services"
)

// Registry is the daemon-wide view of transcription jobs. It owns the
// store and tracks cancel functions for jobs the runner is executing so
// shutdown can stop them.
type Registry struct {
	store  *Store
	logger *slog.Logger

	retention time.Duration
	maxJobs   int

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewRegistry wraps the store. retention bounds how long terminal jobs
// stay visible; maxJobs caps registry size (0 disables either limit).
func NewRegistry(store *Store, logger *slog.Logger, retention time.Duration, maxJobs int) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		store:     store,
		logger:    logger.With(logging.String(logging.FieldComponent, "registry")),
		retention: retention,
		maxJobs:   maxJobs,
		running:   make(map[string]context.CancelFunc),
	}
}

// Create registers a new queued job and returns its snapshot. The id is
// assigned here.
func (r *Registry) Create(ctx context.Context, job *Job) (*Job, error) {
	if job.SourcePath == "" {
		return nil, services.Wrap(services.ErrInvalidParameters, "registry", "create", "source path is required", nil)
	}
	job.ID = uuid.NewString()
	if job.SourceName == "" {
		job.SourceName = filepath.Base(job.SourcePath)
	}
	job.Status = StatusQueued
	if err := r.store.Create(ctx, job); err != nil {
		return nil, err
	}
	r.logger.Info("job created",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", job.SourceName))
	return job.Snapshot(), nil
}

// Get returns a snapshot of the job.
func (r *Registry) Get(ctx context.Context, id string) (*Job, error) {
	return r.store.GetByID(ctx, id)
}

// List returns job snapshots, newest first, optionally filtered by status.
func (r *Registry) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	return r.store.List(ctx, statuses...)
}

// Stats summarizes the registry.
func (r *Registry) Stats(ctx context.Context) (Stats, error) {
	return r.store.Stats(ctx)
}

// Update persists a job row with transition enforcement.
func (r *Registry) Update(ctx context.Context, job *Job) error {
	return r.store.Update(ctx, job)
}

// RequestCancellation flags the job for cancellation. The runner honors
// the flag at the next chunk boundary; a job that has not started yet is
// cancelled before its first chunk. Requests against terminal jobs are
// ignored.
func (r *Registry) RequestCancellation(ctx context.Context, id string) error {
	job, err := r.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}
	if err := r.store.SetCancelRequested(ctx, id); err != nil {
		return err
	}
	r.logger.Info("cancellation requested", logging.String(logging.FieldJobID, id))
	return nil
}

// CancelRequested reports whether the job has been flagged.
func (r *Registry) CancelRequested(ctx context.Context, id string) (bool, error) {
	return r.store.CancelRequested(ctx, id)
}

// Delete removes a job. Active jobs are flagged for cancellation first so
// the runner winds down; their rows stay until they reach a terminal
// state and the next sweep collects them.
func (r *Registry) Delete(ctx context.Context, id string) error {
	job, err := r.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !job.Status.IsTerminal() {
		return r.RequestCancellation(ctx, id)
	}
	return r.store.Delete(ctx, id)
}

// Attach records the cancel function for a running job.
func (r *Registry) Attach(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running[id] = cancel
}

// Detach forgets a finished job's cancel function.
func (r *Registry) Detach(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}

// StopAll cancels every running job. Used on daemon shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.running))
	for _, cancel := range r.running {
		cancels = append(cancels, cancel)
	}
	r.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// RunningCount reports how many jobs currently hold a cancel function.
func (r *Registry) RunningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

// Sweep evicts terminal jobs past the retention window and, when the
// registry exceeds its cap, the oldest terminal jobs beyond it. Returns
// the ids of removed jobs so callers can drop derived state.
func (r *Registry) Sweep(ctx context.Context) ([]string, error) {
	var removed []string
	if r.retention > 0 {
		expired, err := r.store.ExpiredTerminal(ctx, time.Now().UTC().Add(-r.retention))
		if err != nil {
			return removed, err
		}
		for _, job := range expired {
			if err := r.store.Delete(ctx, job.ID); err != nil {
				return removed, err
			}
			removed = append(removed, job.ID)
		}
	}
	if r.maxJobs > 0 {
		total, err := r.store.Count(ctx)
		if err != nil {
			return removed, err
		}
		if excess := total - r.maxJobs; excess > 0 {
			victims, err := r.store.OldestTerminal(ctx, excess)
			if err != nil {
				return removed, err
			}
			for _, job := range victims {
				if err := r.store.Delete(ctx, job.ID); err != nil {
					return removed, err
				}
				removed = append(removed, job.ID)
			}
		}
	}
	if len(removed) > 0 {
		r.logger.Debug("registry sweep", logging.Int("removed", len(removed)))
	}
	return removed, nil
}
