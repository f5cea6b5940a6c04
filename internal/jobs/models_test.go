package jobs

import "testing"

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  Status
		ok    bool
	}{
		{"queued", StatusQueued, true},
		{"  Transcribing ", StatusTranscribing, true},
		{"COMPLETED", StatusCompleted, true},
		{"", "", false},
		{"paused", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStatus(tc.input)
		if ok != tc.ok {
			t.Fatalf("ParseStatus(%q) ok = %v, want %v", tc.input, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseStatus(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusQueued, StatusChunking},
		{StatusChunking, StatusTranscribing},
		{StatusTranscribing, StatusCompleted},
		{StatusTranscribing, StatusFailed},
		{StatusQueued, StatusCancelled},
		{StatusChunking, StatusCancelled},
		{StatusTranscribing, StatusCancelled},
		{StatusQueued, StatusQueued},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusQueued, StatusTranscribing},
		{StatusQueued, StatusFailed},
		{StatusChunking, StatusFailed},
		{StatusChunking, StatusCompleted},
		{StatusTranscribing, StatusQueued},
		{StatusCompleted, StatusCancelled},
		{StatusFailed, StatusTranscribing},
		{StatusCancelled, StatusQueued},
	}
	for _, tc := range denied {
		if tc.from.CanTransition(tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestTerminalAndActive(t *testing.T) {
	for _, status := range AllStatuses() {
		terminal := status == StatusCompleted || status == StatusFailed || status == StatusCancelled
		if status.IsTerminal() != terminal {
			t.Errorf("IsTerminal(%s) = %v", status, status.IsTerminal())
		}
		if status.IsActive() == terminal {
			t.Errorf("IsActive(%s) = %v", status, status.IsActive())
		}
	}
	if Status("bogus").IsActive() {
		t.Error("unknown status must not be active")
	}
}

func TestSetProgressNeverRegresses(t *testing.T) {
	job := &Job{}
	job.SetProgress(2, 4)
	if job.Progress != 50 {
		t.Fatalf("progress = %d, want 50", job.Progress)
	}
	job.SetProgress(1, 4)
	if job.Progress != 50 {
		t.Fatalf("progress regressed to %d", job.Progress)
	}
	job.SetProgress(3, 4)
	if job.Progress != 75 {
		t.Fatalf("progress = %d, want 75", job.Progress)
	}
	// Integer floor, never rounding up.
	job = &Job{}
	job.SetProgress(1, 3)
	if job.Progress != 33 {
		t.Fatalf("progress = %d, want 33", job.Progress)
	}
}

func TestSetCompletedForcesFullProgress(t *testing.T) {
	job := &Job{Status: StatusTranscribing, Progress: 80, ErrorMessage: "stale"}
	job.SetCompleted("text", "[]")
	if job.Progress != 100 || job.Status != StatusCompleted || job.ErrorMessage != "" {
		t.Fatalf("unexpected completed job %+v", job)
	}
}

func TestOptionsRoundTrip(t *testing.T) {
	encoded, err := (Options{}).Encode()
	if err != nil || encoded != "" {
		t.Fatalf("zero options encoded to %q, err %v", encoded, err)
	}

	opts := Options{VAD: true, VADAggressiveness: 2, BeamSize: 5, NoiseReduction: true, NoiseReductionStrength: 0.6}
	encoded, err = opts.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	job := &Job{OptionsJSON: encoded}
	if got := job.Options(); got != opts {
		t.Fatalf("round trip = %+v, want %+v", got, opts)
	}

	if got := (&Job{OptionsJSON: "{garbage"}).Options(); !got.IsZero() {
		t.Fatalf("malformed options decoded to %+v", got)
	}
}

func TestOptionsValidate(t *testing.T) {
	valid := []Options{
		{},
		{VAD: true, VADAggressiveness: 3},
		{NoiseReduction: true, NoiseReductionStrength: 1},
	}
	for _, opts := range valid {
		if err := opts.Validate(); err != nil {
			t.Errorf("Validate(%+v) = %v, want nil", opts, err)
		}
	}

	invalid := []Options{
		{VADAggressiveness: 4},
		{VADAggressiveness: -1},
		{NoiseReductionStrength: 1.5},
		{NoiseReductionStrength: -0.1},
	}
	for _, opts := range invalid {
		if err := opts.Validate(); err == nil {
			t.Errorf("Validate(%+v) accepted out-of-range value", opts)
		}
	}
}
