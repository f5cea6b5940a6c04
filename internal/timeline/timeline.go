package timeline

import (
	"fmt"

	"scribe/internal/services"
)

// Window is one time-bounded slice of the input audio, processed as a unit by
// the transcription engine. Windows are immutable once planned; Index is the
// sole ordering key.
type Window struct {
	Index int
	Start float64
	End   float64
}

// Duration returns the window length in seconds.
func (w Window) Duration() float64 {
	return w.End - w.Start
}

// Plan derives the ordered sequence of overlapping windows covering
// [0, totalSeconds]. The first window starts at zero; each subsequent window
// starts chunkSeconds-overlapSeconds after the previous one; planning stops
// once a window's end reaches totalSeconds. A zero-length input yields exactly
// one zero-length window.
func Plan(totalSeconds, chunkSeconds, overlapSeconds float64) ([]Window, error) {
	if err := Validate(totalSeconds, chunkSeconds, overlapSeconds); err != nil {
		return nil, err
	}

	step := chunkSeconds - overlapSeconds
	windows := make([]Window, 0, estimateCount(totalSeconds, step))
	start := 0.0
	for index := 0; ; index++ {
		end := start + chunkSeconds
		if end >= totalSeconds {
			windows = append(windows, Window{Index: index, Start: start, End: totalSeconds})
			break
		}
		windows = append(windows, Window{Index: index, Start: start, End: end})
		start += step
	}
	return windows, nil
}

// Validate checks planner preconditions without producing windows. It is used
// at submission time so bad parameters are rejected before a job exists.
func Validate(totalSeconds, chunkSeconds, overlapSeconds float64) error {
	switch {
	case chunkSeconds <= 0:
		return services.Wrap(services.ErrInvalidParameters, "timeline", "plan",
			fmt.Sprintf("chunk length must be positive, got %g", chunkSeconds), nil)
	case overlapSeconds < 0:
		return services.Wrap(services.ErrInvalidParameters, "timeline", "plan",
			fmt.Sprintf("overlap must not be negative, got %g", overlapSeconds), nil)
	case overlapSeconds >= chunkSeconds:
		return services.Wrap(services.ErrInvalidParameters, "timeline", "plan",
			fmt.Sprintf("overlap %g must be shorter than chunk length %g", overlapSeconds, chunkSeconds), nil)
	case totalSeconds < 0:
		return services.Wrap(services.ErrInvalidParameters, "timeline", "plan",
			fmt.Sprintf("total duration must not be negative, got %g", totalSeconds), nil)
	}
	return nil
}

func estimateCount(totalSeconds, step float64) int {
	if step <= 0 || totalSeconds <= 0 {
		return 1
	}
	return int(totalSeconds/step) + 1
}
