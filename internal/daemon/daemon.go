package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/runner"
	"scribe/internal/server"
)

const sweepInterval = time.Minute

// Daemon ties the registry, runner, progress hub, and HTTP server
// together and enforces single-instance execution through a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	registry *jobs.Registry
	hub      *progress.Hub
	manager  *runner.Manager
	server   *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	sweeps  chan struct{}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, registry *jobs.Registry, hub *progress.Hub, manager *runner.Manager, srv *server.Server, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || registry == nil || hub == nil || manager == nil || srv == nil {
		return nil, errors.New("daemon requires config, store, registry, hub, runner, and server")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "scribed.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:    store,
		registry: registry,
		hub:      hub,
		manager:  manager,
		server:   srv,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and brings up the runner, the retention
// sweeper, and the HTTP server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribed instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.sweeps = make(chan struct{})

	d.manager.Start(runCtx)
	if err := d.server.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	go d.sweepLoop(runCtx)

	for _, status := range deps.Missing(deps.CheckBinaries(deps.TranscriptionRequirements(d.cfg.Engine))) {
		d.logger.Warn("missing engine dependency",
			logging.String("name", status.Name),
			logging.String("detail", status.Detail))
	}

	d.running.Store(true)
	d.logger.Info("scribed started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.server.Addr()))
	return nil
}

// Stop shuts everything down: running jobs are cancelled, the HTTP
// server drains, and the lock is released.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	d.registry.StopAll()
	d.manager.Wait()
	if d.sweeps != nil {
		<-d.sweeps
		d.sweeps = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("scribed stopped")
}

// Close stops the daemon and releases the job store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether Start has succeeded and Stop has not run.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr reports the HTTP server's bound address once started.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// LockPath returns the lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// sweepLoop periodically evicts expired and surplus terminal jobs and
// drops their progress snapshots.
func (d *Daemon) sweepLoop(ctx context.Context) {
	defer close(d.sweeps)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := d.registry.Sweep(ctx)
			if err != nil {
				if ctx.Err() == nil {
					d.logger.Warn("registry sweep failed", logging.Error(err))
				}
				continue
			}
			for _, id := range removed {
				d.hub.Forget(id)
			}
		}
	}
}
