package schema

import "errors"

// Error kinds shared across the engine. Callers classify failures with
// errors.Is; every package wraps these with fmt.Errorf("...: %w", ...).
var (
	// ErrInvalidArgument indicates malformed caller input (bad chunk size,
	// wrong vector dimension, unsupported media type).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConfigConflict indicates an existing index or collection whose
	// dimension or metric differs from the requested one.
	ErrConfigConflict = errors.New("store configuration conflict")

	// ErrServiceUnavailable indicates a network failure or 5xx from an
	// external service. Retryable by the caller.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrRateLimited indicates a 429-equivalent from an external service.
	// Retryable by the caller with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidResponse indicates a malformed external response. Not
	// retryable.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrIngestionFailed indicates an ingestion aborted before any upsert,
	// typically because embedding a chunk batch failed partway.
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrCancelled indicates the caller's context was cancelled while a
	// call was outstanding.
	ErrCancelled = errors.New("cancelled")
)

// Retryable reports whether err is an error kind the caller may retry.
// The engine never retries implicitly.
func Retryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimited)
}
