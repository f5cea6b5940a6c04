package jobs

import (
	"encoding/json"
	"fmt"
)

// Options are per-job engine tweaks forwarded to the transcription binary
// and the audio extraction step.
type Options struct {
	VAD                    bool    `json:"vad,omitempty"`
	VADAggressiveness      int     `json:"vadAggressiveness,omitempty"`
	Translate              bool    `json:"translate,omitempty"`
	BeamSize               int     `json:"beamSize,omitempty"`
	NoiseReduction         bool    `json:"noiseReductionEnabled,omitempty"`
	NoiseReductionStrength float64 `json:"noiseReductionStrength,omitempty"`
}

// Validate checks option ranges before a job is created. Aggressiveness
// follows the 0-3 scale of WebRTC-style detectors; strength is a 0-1
// fraction.
func (o Options) Validate() error {
	if o.VADAggressiveness < 0 || o.VADAggressiveness > 3 {
		return fmt.Errorf("vadAggressiveness %d out of range 0-3", o.VADAggressiveness)
	}
	if o.NoiseReductionStrength < 0 || o.NoiseReductionStrength > 1 {
		return fmt.Errorf("noiseReductionStrength %g out of range 0-1", o.NoiseReductionStrength)
	}
	return nil
}

// IsZero reports whether no option deviates from the engine defaults.
func (o Options) IsZero() bool {
	return o == Options{}
}

// Encode serializes the options for storage. Zero options encode to the
// empty string so untouched jobs keep a NULL column.
func (o Options) Encode() (string, error) {
	if o.IsZero() {
		return "", nil
	}
	data, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeOptions parses a stored options payload. The empty string yields
// zero options.
func DecodeOptions(raw string) (Options, error) {
	if raw == "" {
		return Options{}, nil
	}
	var opts Options
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Options decodes the job's stored engine options, ignoring malformed
// payloads from older rows.
func (j *Job) Options() Options {
	opts, err := DecodeOptions(j.OptionsJSON)
	if err != nil {
		return Options{}
	}
	return opts
}
