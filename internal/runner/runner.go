package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"

	"scribe/internal/config"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/timeline"
	"scribe/internal/transcript"
)

// Engine transcribes one planner window of a source file. Segment timings
// in the result must be absolute on the source timeline.
type Engine interface {
	TranscribeWindow(ctx context.Context, source string, window timeline.Window, language string, opts jobs.Options, workDir string) (transcript.ChunkResult, error)
}

// Notifier is told about terminal job outcomes. Implementations must be
// safe for concurrent use.
type Notifier interface {
	JobCompleted(ctx context.Context, job *jobs.Job)
	JobFailed(ctx context.Context, job *jobs.Job)
}

// Manager executes jobs: it plans chunk windows, drives the engine one
// window at a time, merges the results, and publishes progress. At most
// MaxConcurrent jobs transcribe at once; the rest wait their turn in
// queued state.
type Manager struct {
	cfg      *config.Config
	registry *jobs.Registry
	hub      *progress.Hub
	engine   Engine
	notifier Notifier
	logger   *slog.Logger

	sem *semaphore.Weighted

	mu      sync.Mutex
	baseCtx context.Context
	started bool
	wg      sync.WaitGroup
}

// NewManager wires the runner. notifier may be nil.
func NewManager(cfg *config.Config, registry *jobs.Registry, hub *progress.Hub, engine Engine, notifier Notifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Jobs.MaxConcurrent
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		cfg:      cfg,
		registry: registry,
		hub:      hub,
		engine:   engine,
		notifier: notifier,
		logger:   logger.With(logging.String(logging.FieldComponent, "runner")),
		sem:      semaphore.NewWeighted(int64(workers)),
	}
}

// Start fixes the context job goroutines derive from. Cancelling it stops
// accepting work and unblocks queued jobs.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseCtx = ctx
	m.started = true
}

// Launch begins executing a queued job in the background.
func (m *Manager) Launch(job *jobs.Job) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return fmt.Errorf("runner not started")
	}
	base := m.baseCtx
	m.mu.Unlock()

	jobCtx, cancel := context.WithCancel(base)
	m.registry.Attach(job.ID, cancel)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer m.registry.Detach(job.ID)
		m.execute(jobCtx, job.ID)
	}()
	return nil
}

// Wait blocks until all launched jobs have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) execute(ctx context.Context, jobID string) {
	ctx = logging.WithJob(ctx, jobID)
	logger := logging.WithContext(ctx, m.logger)

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.finalizeInterrupted(jobID, logger)
		return
	}
	defer m.sem.Release(1)

	job, err := m.registry.Get(context.Background(), jobID)
	if err != nil {
		logger.Error("job vanished before start", logging.Error(err))
		return
	}
	if job.Status.IsTerminal() {
		return
	}
	if job.CancelRequested {
		m.finalizeCancelled(job, logger)
		return
	}

	plan, err := m.chunk(logging.WithStage(ctx, "chunking"), job)
	if err != nil {
		m.finalizeFailed(job, fmt.Sprintf("chunking: %v", err), logger)
		return
	}

	m.transcribe(logging.WithStage(ctx, "transcribing"), job, plan)
}

// chunk moves the job into chunking and plans its windows.
func (m *Manager) chunk(ctx context.Context, job *jobs.Job) ([]timeline.Window, error) {
	logger := logging.WithContext(ctx, m.logger)
	job.Status = jobs.StatusChunking
	if err := m.registry.Update(context.Background(), job); err != nil {
		return nil, err
	}
	m.publishStatus(job)

	plan, err := timeline.Plan(job.DurationSeconds, job.ChunkSeconds, job.OverlapSeconds)
	if err != nil {
		return nil, err
	}
	job.TotalChunks = len(plan)
	logger.Info("chunk plan ready",
		logging.Int("chunks", len(plan)),
		logging.Float64("duration_seconds", job.DurationSeconds))
	return plan, nil
}

// transcribe drives the engine window by window. Cancellation is honored
// at chunk boundaries only: the window in flight always runs to its end.
func (m *Manager) transcribe(ctx context.Context, job *jobs.Job, plan []timeline.Window) {
	logger := logging.WithContext(ctx, m.logger)
	job.Status = jobs.StatusTranscribing
	if err := m.registry.Update(context.Background(), job); err != nil {
		logger.Error("enter transcribing", logging.Error(err))
		return
	}
	m.publishStatus(job)

	workDir := filepath.Join(m.cfg.Paths.WorkDir, job.ID)
	merger := transcript.NewMerger(job.OverlapSeconds)
	opts := job.Options()

	for _, window := range plan {
		if m.shouldStop(ctx, job, logger) {
			return
		}

		result, err := m.engine.TranscribeWindow(ctx, job.SourcePath, window, job.Language, opts, workDir)
		if err != nil {
			if ctx.Err() != nil {
				m.finalizeDaemonStop(job, logger)
				return
			}
			job.CurrentChunk = window.Index + 1
			m.finalizeFailed(job, fmt.Sprintf("chunk %d: %v", window.Index+1, err), logger)
			return
		}

		merger.Add(result)
		job.AccumulatedText = merger.Text()
		job.SetProgress(window.Index+1, len(plan))
		if err := m.registry.Update(context.Background(), job); err != nil {
			logger.Error("persist chunk progress", logging.Error(err))
			return
		}
		m.hub.Publish(progress.Event{
			Type:         progress.EventChunk,
			JobID:        job.ID,
			Status:       job.Status,
			Progress:     job.Progress,
			CurrentChunk: job.CurrentChunk,
			TotalChunks:  job.TotalChunks,
			ChunkText:    result.Text,
		})
		logger.Debug("chunk transcribed",
			logging.Int(logging.FieldChunk, job.CurrentChunk),
			logging.Int("progress", job.Progress))
	}

	if m.shouldStop(ctx, job, logger) {
		return
	}

	merged := merger.Result()
	segmentsJSON := ""
	if len(merged.Segments) > 0 {
		if data, err := json.Marshal(merged.Segments); err == nil {
			segmentsJSON = string(data)
		} else {
			logger.Error("encode segments", logging.Error(err))
		}
	}
	job.SetCompleted(merged.Text, segmentsJSON)
	if err := m.registry.Update(context.Background(), job); err != nil {
		logger.Error("persist completion", logging.Error(err))
		return
	}
	m.publishStatus(job)
	logger.Info("job completed", logging.Int("chunks", job.TotalChunks))
	if m.notifier != nil {
		m.notifier.JobCompleted(context.Background(), job.Snapshot())
	}
}

// shouldStop checks the cancellation flag and the job context at a chunk
// boundary and finalizes the job when either fired.
func (m *Manager) shouldStop(ctx context.Context, job *jobs.Job, logger *slog.Logger) bool {
	flagged, err := m.registry.CancelRequested(context.Background(), job.ID)
	if err != nil {
		logger.Error("read cancel flag", logging.Error(err))
		return true
	}
	if flagged {
		m.finalizeCancelled(job, logger)
		return true
	}
	if ctx.Err() != nil {
		m.finalizeDaemonStop(job, logger)
		return true
	}
	return false
}

func (m *Manager) finalizeCancelled(job *jobs.Job, logger *slog.Logger) {
	job.SetCancelled()
	if err := m.registry.Update(context.Background(), job); err != nil {
		logger.Error("persist cancellation", logging.Error(err))
		return
	}
	m.publishStatus(job)
	logger.Info("job cancelled", logging.Int(logging.FieldChunk, job.CurrentChunk))
}

func (m *Manager) finalizeDaemonStop(job *jobs.Job, logger *slog.Logger) {
	if job.Status == jobs.StatusTranscribing {
		job.SetFailed(jobs.DaemonStopReason)
	} else {
		job.SetCancelled()
	}
	if err := m.registry.Update(context.Background(), job); err != nil {
		logger.Error("persist daemon stop", logging.Error(err))
		return
	}
	m.publishStatus(job)
	logger.Info("job stopped with daemon")
}

// finalizeFailed records a failure. Failure is only legal out of the
// transcribing state, so errors earlier in the pipeline pass through it.
func (m *Manager) finalizeFailed(job *jobs.Job, message string, logger *slog.Logger) {
	if job.Status == jobs.StatusChunking {
		job.Status = jobs.StatusTranscribing
		if err := m.registry.Update(context.Background(), job); err != nil {
			logger.Error("persist failure", logging.Error(err))
			return
		}
	}
	job.SetFailed(message)
	if err := m.registry.Update(context.Background(), job); err != nil {
		logger.Error("persist failure", logging.Error(err))
		return
	}
	m.publishStatus(job)
	logger.Error("job failed",
		logging.Int(logging.FieldChunk, job.CurrentChunk),
		logging.String(logging.FieldErrorHint, message))
	if m.notifier != nil {
		m.notifier.JobFailed(context.Background(), job.Snapshot())
	}
}

// finalizeInterrupted handles jobs whose context died while they were
// still waiting for a worker slot.
func (m *Manager) finalizeInterrupted(jobID string, logger *slog.Logger) {
	job, err := m.registry.Get(context.Background(), jobID)
	if err != nil {
		return
	}
	if job.Status.IsTerminal() {
		return
	}
	m.finalizeCancelled(job, logger)
}

func (m *Manager) publishStatus(job *jobs.Job) {
	m.hub.Publish(progress.FromJob(job, progress.EventStatus))
}
