package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/media/ffprobe"
	"scribe/internal/progress"
	"scribe/internal/server"
)

type fixture struct {
	registry *jobs.Registry
	hub      *progress.Hub
	ts       *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	defaults := config.Default()
	cfg := &defaults
	cfg.Paths.WorkDir = t.TempDir()

	store, err := jobs.Open(context.Background(), logging.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := jobs.NewRegistry(store, logging.NewNop(), 0, 0)
	hub := progress.NewHub(64)
	svc := api.NewJobService(cfg, registry, hub, nil, logging.NewNop())
	svc.WithProber(func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "audio"}},
			Format:  ffprobe.Format{Duration: "100"},
		}, nil
	})

	srv := server.New(cfg, svc, hub, logging.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{registry: registry, hub: hub, ts: ts}
}

func (f *fixture) request(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := f.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, buf.Bytes()
}

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestSubmitAndFetchJob(t *testing.T) {
	f := newFixture(t)

	resp, body := f.request(t, http.MethodPost, "/api/jobs", api.SubmitJobRequest{SourcePath: writeSource(t)})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/jobs = %d: %s", resp.StatusCode, body)
	}
	var created api.JobResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Job.Status != "queued" || created.Job.ID == "" {
		t.Fatalf("created job = %+v", created.Job)
	}

	resp, body = f.request(t, http.MethodGet, "/api/jobs/"+created.Job.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET job = %d: %s", resp.StatusCode, body)
	}
	var fetched api.JobResponse
	if err := json.Unmarshal(body, &fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fetched.Job.ID != created.Job.ID || fetched.Job.DurationSeconds != 100 {
		t.Fatalf("fetched job = %+v", fetched.Job)
	}
}

func TestSubmitRejectsBadPayloads(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/jobs", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := f.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed JSON = %d, want 400", resp.StatusCode)
	}

	resp2, _ := f.request(t, http.MethodPost, "/api/jobs", api.SubmitJobRequest{SourcePath: "/no/such.mp3"})
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing source = %d, want 400", resp2.StatusCode)
	}
}

func TestUnknownJobIs404(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.request(t, http.MethodGet, "/api/jobs/ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET unknown job = %d, want 404", resp.StatusCode)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	f.request(t, http.MethodPost, "/api/jobs", api.SubmitJobRequest{SourcePath: writeSource(t)})
	f.request(t, http.MethodPost, "/api/jobs", api.SubmitJobRequest{SourcePath: writeSource(t)})

	resp, body := f.request(t, http.MethodGet, "/api/jobs?status=queued", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/jobs = %d", resp.StatusCode)
	}
	var list api.JobListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Jobs) != 2 {
		t.Fatalf("listed %d jobs, want 2", len(list.Jobs))
	}

	resp, _ = f.request(t, http.MethodGet, "/api/jobs?status=bogus", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bogus status filter = %d, want 400", resp.StatusCode)
	}
}

func TestResultLifecycleStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, body := f.request(t, http.MethodPost, "/api/jobs", api.SubmitJobRequest{SourcePath: writeSource(t)})
	var created api.JobResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := created.Job.ID

	resp, _ := f.request(t, http.MethodGet, "/api/jobs/"+id+"/result", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("result while queued = %d, want 202", resp.StatusCode)
	}

	job, err := f.registry.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	job.Status = jobs.StatusChunking
	if err := f.registry.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}
	job.Status = jobs.StatusTranscribing
	if err := f.registry.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}
	job.SetCompleted("hello world", `[{"start":0,"end":2,"text":"hello world"}]`)
	if err := f.registry.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}

	resp, body = f.request(t, http.MethodGet, "/api/jobs/"+id+"/result?format=srt", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("result srt = %d: %s", resp.StatusCode, body)
	}
	var result api.ResultResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Format != "srt" || !strings.Contains(result.Text, "00:00:00,000 --> 00:00:02,000") {
		t.Fatalf("result = %+v", result)
	}

	resp, _ = f.request(t, http.MethodGet, "/api/jobs/"+id+"/result?format=gif", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown format = %d, want 400", resp.StatusCode)
	}
}

func TestCancelAndConflictResult(t *testing.T) {
	f := newFixture(t)

	_, body := f.request(t, http.MethodPost, "/api/jobs", api.SubmitJobRequest{SourcePath: writeSource(t)})
	var created api.JobResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := created.Job.ID

	resp, _ := f.request(t, http.MethodPost, "/api/jobs/"+id+"/cancel", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("cancel = %d, want 202", resp.StatusCode)
	}

	job, err := f.registry.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	job.SetCancelled()
	if err := f.registry.Update(context.Background(), job); err != nil {
		t.Fatalf("update: %v", err)
	}

	resp, _ = f.request(t, http.MethodGet, "/api/jobs/"+id+"/result", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("result of cancelled job = %d, want 409", resp.StatusCode)
	}

	resp, _ = f.request(t, http.MethodDelete, "/api/jobs/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", resp.StatusCode)
	}
	resp, _ = f.request(t, http.MethodGet, "/api/jobs/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", resp.StatusCode)
	}
}

func TestEventsLongPoll(t *testing.T) {
	f := newFixture(t)

	f.hub.Publish(progress.Event{Type: progress.EventStatus, JobID: "a", Status: jobs.StatusQueued})
	f.hub.Publish(progress.Event{Type: progress.EventChunk, JobID: "a", Status: jobs.StatusTranscribing, Progress: 25, CurrentChunk: 1, TotalChunks: 4})

	resp, body := f.request(t, http.MethodGet, "/api/events?job=a", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/events = %d", resp.StatusCode)
	}
	var events api.EventsResponse
	if err := json.Unmarshal(body, &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events.Events) != 2 || events.Next != 2 {
		t.Fatalf("events = %+v", events)
	}
	if events.Events[1].Progress != 25 || events.Events[1].Type != "chunk" {
		t.Fatalf("chunk event = %+v", events.Events[1])
	}

	resp, body = f.request(t, http.MethodGet, fmt.Sprintf("/api/events?job=a&since=%d", events.Next), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/events since = %d", resp.StatusCode)
	}
	var more api.EventsResponse
	if err := json.Unmarshal(body, &more); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(more.Events) != 0 {
		t.Fatalf("resumed fetch returned %d events, want 0", len(more.Events))
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, body := f.request(t, http.MethodGet, "/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/health = %d", resp.StatusCode)
	}
	var health api.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("health = %+v", health)
	}
}

func TestWebsocketPushesEvents(t *testing.T) {
	f := newFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws?job=a"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Give the server a moment to register the subscriber.
	time.Sleep(50 * time.Millisecond)
	f.hub.Publish(progress.Event{Type: progress.EventStatus, JobID: "a", Status: jobs.StatusChunking})
	f.hub.Publish(progress.Event{Type: progress.EventStatus, JobID: "b", Status: jobs.StatusChunking})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var evt api.ProgressEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if evt.JobID != "a" || evt.Status != "chunking" {
		t.Fatalf("event = %+v", evt)
	}
}

func TestSubmitMultipartUpload(t *testing.T) {
	f := newFixture(t)

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("file", "interview.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake audio")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.WriteField("language", "en"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.WriteField("vad", "true"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.WriteField("vadAggressiveness", "2"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.WriteField("noiseReductionEnabled", "true"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.WriteField("noiseReductionStrength", "0.6"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/jobs", &form)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := f.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("POST upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload submit = %d", resp.StatusCode)
	}

	var created api.JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Job.SourceName == "" || !strings.HasSuffix(created.Job.SourceName, "interview.wav") {
		t.Fatalf("source name = %q", created.Job.SourceName)
	}
	if created.Job.Language != "en" {
		t.Fatalf("language = %q", created.Job.Language)
	}

	// The uploaded bytes landed under the work directory.
	content, err := os.ReadFile(created.Job.SourcePath)
	if err != nil {
		t.Fatalf("read stored upload: %v", err)
	}
	if string(content) != "fake audio" {
		t.Fatalf("stored upload = %q", content)
	}

	stored, err := f.registry.Get(context.Background(), created.Job.ID)
	if err != nil {
		t.Fatalf("registry get: %v", err)
	}
	opts := stored.Options()
	if !opts.VAD || opts.VADAggressiveness != 2 {
		t.Fatalf("expected VAD options persisted, got %q", stored.OptionsJSON)
	}
	if !opts.NoiseReduction || opts.NoiseReductionStrength != 0.6 {
		t.Fatalf("expected noise options persisted, got %q", stored.OptionsJSON)
	}
}

func TestFormatsEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, body := f.request(t, http.MethodGet, "/api/formats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/formats = %d", resp.StatusCode)
	}
	var listing api.FormatListResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing.Formats) != 4 {
		t.Fatalf("got %d formats, want 4", len(listing.Formats))
	}
	for _, format := range listing.Formats {
		if format.Name == "srt" {
			if format.Extension != ".srt" || !format.RequiresSegments {
				t.Fatalf("srt format = %+v", format)
			}
			return
		}
	}
	t.Fatalf("srt missing from %+v", listing.Formats)
}

func TestStopIsIdempotent(t *testing.T) {
	defaults := config.Default()
	cfg := &defaults
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Paths.WorkDir = t.TempDir()

	store, err := jobs.Open(context.Background(), logging.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	registry := jobs.NewRegistry(store, logging.NewNop(), 0, 0)
	hub := progress.NewHub(8)
	svc := api.NewJobService(cfg, registry, hub, nil, logging.NewNop())
	srv := server.New(cfg, svc, hub, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if srv.Addr() == "" {
		t.Fatal("Addr() empty after Start")
	}

	// Stop races with the ctx-watcher goroutine in production; concurrent
	// calls must both return without panicking or double-closing.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.Stop()
		}()
	}
	wg.Wait()
	if srv.Addr() != "" {
		t.Fatalf("Addr() = %q after Stop, want empty", srv.Addr())
	}
}
