// Package services hosts shared service-layer helpers: the sentinel error
// taxonomy used to classify failures across the submission and job-running
// paths, and subpackages wrapping external tools (the whisper engine client).
//
// Errors are tagged by wrapping one of the exported sentinels so callers can
// classify with errors.Is without string matching:
//
//	return services.Wrap(services.ErrEngineFailure, "whisper", "transcribe", "decode output", err)
//
// ErrInvalidParameters is surfaced synchronously at submission; all other
// markers travel through job state or API responses.
package services
