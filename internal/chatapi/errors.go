package chatapi

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileUnavailable means the public business profile could not be
	// fetched. Callers fall back to built-in defaults.
	ErrProfileUnavailable = errors.New("chatapi: business profile unavailable")
	// ErrUploadFailed means the image upload did not succeed.
	ErrUploadFailed = errors.New("chatapi: upload failed")
	// ErrTimeout means a send exceeded its time cap and was cancelled.
	ErrTimeout = errors.New("chatapi: send timed out")
	// ErrNetworkFailure covers every other failed send.
	ErrNetworkFailure = errors.New("chatapi: network failure")
	// ErrRateFailed and ErrTranscriptFailed report best-effort calls.
	ErrRateFailed       = errors.New("chatapi: rate conversation failed")
	ErrTranscriptFailed = errors.New("chatapi: email transcript failed")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
	kind       error
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chatapi: %s returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("chatapi: %s returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap exposes the sentinel of the failed operation.
func (e *StatusError) Unwrap() error {
	return e.kind
}
