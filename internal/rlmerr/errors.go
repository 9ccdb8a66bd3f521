// Package rlmerr defines the sentinel error kinds shared across the RLM engine.
package rlmerr

import "errors"

// Sentinel error kinds per the engine's error handling design.
var (
	// ErrNotFound is returned when a store read requires presence that is absent.
	ErrNotFound = errors.New("rlm: not found")
	// ErrParse marks malformed URL templates or model output that fails a
	// required parse boundary. The parsers in this module report failure
	// with an ok=false result instead of returning it.
	ErrParse = errors.New("rlm: parse error")
	// ErrSessionDied is returned when an interpreter session's worker thread
	// has terminated and can no longer accept code submissions.
	ErrSessionDied = errors.New("rlm: session died")
	// ErrCancelled marks a request abandoned due to cancellation. Cancelled
	// calls in this module return the context's own error instead.
	ErrCancelled = errors.New("rlm: cancelled")
)
