package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/jobs"
	"scribe/internal/logging"
)

const userAgent = "Scribe/0.1.0"

// Service pushes terminal job outcomes to the operator. Delivery is best
// effort: failures are logged and never interrupt the pipeline.
type Service interface {
	JobCompleted(ctx context.Context, job *jobs.Job)
	JobFailed(ctx context.Context, job *jobs.Job)
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when a topic is
// configured, otherwise a noop implementation.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(logging.String(logging.FieldComponent, "notifications")),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func (n *ntfyService) JobCompleted(ctx context.Context, job *jobs.Job) {
	data := payload{
		title:   "Scribe - Transcription Complete",
		message: fmt.Sprintf("Transcribed %s (%d chunks)", job.SourceName, job.TotalChunks),
		tags:    []string{"scribe", "job", "completed"},
	}
	n.deliver(ctx, job.ID, data)
}

func (n *ntfyService) JobFailed(ctx context.Context, job *jobs.Job) {
	message := fmt.Sprintf("Transcription failed: %s", job.SourceName)
	if cause := strings.TrimSpace(job.ErrorMessage); cause != "" {
		message = fmt.Sprintf("%s\n%s", message, cause)
	}
	data := payload{
		title:    "Scribe - Transcription Failed",
		message:  message,
		tags:     []string{"scribe", "job", "failed"},
		priority: "high",
	}
	n.deliver(ctx, job.ID, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Scribe - Test",
		message:  "Notification system test",
		tags:     []string{"scribe", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) deliver(ctx context.Context, jobID string, data payload) {
	if err := n.send(ctx, data); err != nil {
		n.logger.Warn("notification delivery failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) JobCompleted(context.Context, *jobs.Job) {}
func (noopService) JobFailed(context.Context, *jobs.Job)    {}
func (noopService) TestNotification(context.Context) error  { return nil }
