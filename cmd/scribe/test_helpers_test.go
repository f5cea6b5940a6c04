package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/media/ffprobe"
	"scribe/internal/progress"
	"scribe/internal/runner"
	"scribe/internal/server"
	"scribe/internal/testsupport"
)

type cliTestEnv struct {
	cfg      *config.Config
	registry *jobs.Registry
	daemon   *daemon.Daemon
	addr     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t)
	retention := time.Duration(cfg.Jobs.RetentionMinutes) * time.Minute
	registry := jobs.NewRegistry(store, logging.NewNop(), retention, cfg.Jobs.MaxJobs)
	hub := progress.NewHub(128)
	manager := runner.NewManager(cfg, registry, hub, &testsupport.CannedEngine{}, nil, logging.NewNop())
	svc := api.NewJobService(cfg, registry, hub, manager, logging.NewNop())
	svc.WithProber(func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "audio"}},
			Format:  ffprobe.Format{Duration: "100"},
		}, nil
	})
	srv := server.New(cfg, svc, hub, logging.NewNop())

	d, err := daemon.New(cfg, store, registry, hub, manager, srv, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})

	return &cliTestEnv{cfg: cfg, registry: registry, daemon: d, addr: d.Addr()}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--addr", env.addr}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

// waitForStatus polls the registry until the job reaches the wanted status.
func waitForStatus(t *testing.T, env *cliTestEnv, jobID string, want jobs.Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := env.registry.Get(context.Background(), jobID)
		if err != nil {
			t.Fatalf("registry get: %v", err)
		}
		if job.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
}
