package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidParameters marks submission-time validation failures. Jobs
	// rejected with this marker are never created.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrEngineFailure marks an unrecoverable transcription engine error for
	// a chunk. The owning job transitions to failed.
	ErrEngineFailure = errors.New("engine failure")

	// ErrNotFound marks lookups of unknown or evicted job identifiers.
	ErrNotFound = errors.New("not found")

	// ErrNotReady marks result requests made before a job reached
	// terminal success.
	ErrNotReady = errors.New("not ready")

	// ErrCancelled marks result requests against a cancelled job.
	ErrCancelled = errors.New("cancelled")

	// ErrJobFailed marks result requests against a failed job.
	ErrJobFailed = errors.New("job failed")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrEngineFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
