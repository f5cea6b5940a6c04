package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/jobs"
	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/media/ffprobe"
	"scribe/internal/progress"
	"scribe/internal/services"
	"scribe/internal/subtitles"
	"scribe/internal/timeline"
	"scribe/internal/transcript"
)

// Launcher begins background execution of a freshly created job.
type Launcher interface {
	Launch(job *jobs.Job) error
}

// JobService validates submissions, reads job state for the HTTP surface,
// and renders finished transcripts.
type JobService struct {
	cfg      *config.Config
	registry *jobs.Registry
	hub      *progress.Hub
	launcher Launcher
	logger   *slog.Logger

	probe func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// NewJobService wires the service. launcher may be nil for read-only use.
func NewJobService(cfg *config.Config, registry *jobs.Registry, hub *progress.Hub, launcher Launcher, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &JobService{
		cfg:      cfg,
		registry: registry,
		hub:      hub,
		launcher: launcher,
		logger:   logger.With(logging.String(logging.FieldComponent, "jobservice")),
		probe:    ffprobe.Inspect,
	}
}

// WithProber overrides media probing (for testing).
func (s *JobService) WithProber(probe func(ctx context.Context, binary, path string) (ffprobe.Result, error)) {
	s.probe = probe
}

// Submit validates the request, probes the source, registers the job, and
// hands it to the runner. All parameter errors surface before the job exists.
func (s *JobService) Submit(ctx context.Context, req SubmitJobRequest) (JobView, error) {
	sourcePath := strings.TrimSpace(req.SourcePath)
	if sourcePath == "" {
		return JobView{}, services.Wrap(services.ErrInvalidParameters, "jobservice", "submit", "sourcePath is required", nil)
	}
	sourcePath, err := filepath.Abs(sourcePath)
	if err != nil {
		return JobView{}, services.Wrap(services.ErrInvalidParameters, "jobservice", "submit", "resolve source path", err)
	}
	info, err := os.Stat(sourcePath)
	if err != nil {
		return JobView{}, services.Wrap(services.ErrInvalidParameters, "jobservice", "submit",
			fmt.Sprintf("source file %s not readable", sourcePath), err)
	}
	if info.IsDir() {
		return JobView{}, services.Wrap(services.ErrInvalidParameters, "jobservice", "submit",
			fmt.Sprintf("source %s is a directory", sourcePath), nil)
	}

	chunkSeconds := req.ChunkSeconds
	if chunkSeconds == 0 {
		chunkSeconds = s.cfg.Jobs.DefaultChunkSeconds
	}
	overlapSeconds := req.OverlapSeconds
	if overlapSeconds == 0 {
		overlapSeconds = s.cfg.Jobs.DefaultOverlapSeconds
	}

	lang, err := language.Normalize(req.Language)
	if err != nil {
		return JobView{}, err
	}

	opts := jobs.Options{
		VAD:                    req.VAD,
		VADAggressiveness:      req.VADAggressiveness,
		Translate:              req.Translate,
		BeamSize:               req.BeamSize,
		NoiseReduction:         req.NoiseReduction,
		NoiseReductionStrength: req.NoiseReductionStrength,
	}
	if err := opts.Validate(); err != nil {
		return JobView{}, services.Wrap(services.ErrInvalidParameters, "jobservice", "submit", err.Error(), nil)
	}
	optionsJSON, err := opts.Encode()
	if err != nil {
		return JobView{}, services.Wrap(services.ErrInvalidParameters, "jobservice", "submit", "encode engine options", err)
	}

	probed, err := s.probe(ctx, s.cfg.Engine.FFprobeBinary, sourcePath)
	if err != nil {
		return JobView{}, err
	}
	if err := probed.ValidateForTranscription(); err != nil {
		return JobView{}, err
	}
	duration := probed.DurationSeconds()
	if err := timeline.Validate(duration, chunkSeconds, overlapSeconds); err != nil {
		return JobView{}, err
	}

	job, err := s.registry.Create(ctx, &jobs.Job{
		SourcePath:      sourcePath,
		Language:        lang,
		DurationSeconds: duration,
		ChunkSeconds:    chunkSeconds,
		OverlapSeconds:  overlapSeconds,
		OptionsJSON:     optionsJSON,
	})
	if err != nil {
		return JobView{}, err
	}
	s.hub.Publish(progress.FromJob(job, progress.EventStatus))

	if s.launcher != nil {
		if err := s.launcher.Launch(job); err != nil {
			return JobView{}, services.Wrap(services.ErrEngineFailure, "jobservice", "submit", "launch job", err)
		}
	}
	s.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", job.SourceName),
		logging.Float64("duration_seconds", duration))
	return FromJob(job), nil
}

// SaveUpload stores an uploaded source file under the work directory and
// returns the stored path for submission.
func (s *JobService) SaveUpload(filename string, r io.Reader) (string, error) {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "" || base == "." || base == "/" {
		return "", services.Wrap(services.ErrInvalidParameters, "jobservice", "upload", "a file name is required", nil)
	}
	dir := filepath.Join(s.cfg.Paths.WorkDir, "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	dest := filepath.Join(dir, uuid.NewString()+"_"+base)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("store upload: %w", err)
	}
	return dest, nil
}

// Describe returns one job.
func (s *JobService) Describe(ctx context.Context, id string) (JobView, error) {
	job, err := s.registry.Get(ctx, id)
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job), nil
}

// List returns jobs newest first, optionally filtered by status.
func (s *JobService) List(ctx context.Context, statuses ...jobs.Status) ([]JobView, error) {
	list, err := s.registry.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(list), nil
}

// Cancel requests cooperative cancellation.
func (s *JobService) Cancel(ctx context.Context, id string) (JobView, error) {
	if err := s.registry.RequestCancellation(ctx, id); err != nil {
		return JobView{}, err
	}
	return s.Describe(ctx, id)
}

// Delete removes a job from the registry.
func (s *JobService) Delete(ctx context.Context, id string) error {
	return s.registry.Delete(ctx, id)
}

// Formats lists the transcript output formats the result endpoint renders.
func (s *JobService) Formats() []FormatView {
	descriptions := map[subtitles.Kind]string{
		subtitles.KindText:        "Plain text transcription",
		subtitles.KindSRT:         "SubRip subtitle format",
		subtitles.KindVTT:         "WebVTT subtitle format",
		subtitles.KindTimestamped: "Plain text with timestamps",
	}
	views := make([]FormatView, 0, len(descriptions))
	for _, kind := range subtitles.Kinds() {
		views = append(views, FormatView{
			Name:             string(kind),
			Description:      descriptions[kind],
			Extension:        kind.FileExtension(),
			RequiresSegments: kind.RequiresSegments(),
		})
	}
	return views
}

// Health summarizes registry occupancy.
func (s *JobService) Health(ctx context.Context) (HealthResponse, error) {
	stats, err := s.registry.Stats(ctx)
	if err != nil {
		return HealthResponse{}, err
	}
	ready := len(deps.Missing(deps.CheckBinaries(deps.TranscriptionRequirements(s.cfg.Engine)))) == 0
	return HealthResponse{Status: "ok", ActiveJobs: stats.Active, TotalJobs: stats.Total, EngineReady: ready}, nil
}

// Result renders the finished transcript in the requested format. Jobs
// still running yield ErrNotReady; cancelled and failed jobs yield
// ErrCancelled and ErrJobFailed respectively.
func (s *JobService) Result(ctx context.Context, id, format string) (ResultResponse, error) {
	kind, ok := subtitles.ParseKind(format)
	if !ok {
		return ResultResponse{}, services.Wrap(services.ErrInvalidParameters, "jobservice", "result",
			fmt.Sprintf("unknown format %q", format), nil)
	}

	job, err := s.registry.Get(ctx, id)
	if err != nil {
		return ResultResponse{}, err
	}
	switch job.Status {
	case jobs.StatusCompleted:
	case jobs.StatusCancelled:
		return ResultResponse{}, services.Wrap(services.ErrCancelled, "jobservice", "result",
			fmt.Sprintf("job %s was cancelled", id), nil)
	case jobs.StatusFailed:
		return ResultResponse{}, services.Wrap(services.ErrJobFailed, "jobservice", "result",
			fmt.Sprintf("job %s failed: %s", id, job.ErrorMessage), nil)
	default:
		return ResultResponse{}, services.Wrap(services.ErrNotReady, "jobservice", "result",
			fmt.Sprintf("job %s is %s", id, job.Status), nil)
	}

	merged := transcript.Result{Text: job.AccumulatedText}
	if job.SegmentsJSON != "" {
		if err := json.Unmarshal([]byte(job.SegmentsJSON), &merged.Segments); err != nil {
			return ResultResponse{}, services.Wrap(services.ErrEngineFailure, "jobservice", "result", "decode stored segments", err)
		}
	}
	rendered, err := subtitles.Render(merged, kind)
	if err != nil {
		return ResultResponse{}, err
	}
	return ResultResponse{
		JobID:    job.ID,
		Format:   string(kind),
		Text:     rendered,
		Segments: FromSegments(merged.Segments),
	}, nil
}
