package client

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the server rejects the caller's identity
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound is returned when the requested download does not exist
var ErrNotFound = errors.New("download not found")

// ErrNoIdentity is returned by cache operations that need a logged-in user
var ErrNoIdentity = errors.New("no identity set")

// ConflictError is returned when the song already has an active download.
// DownloadID identifies the existing job so the caller can redirect to it
// instead of treating the conflict as a hard failure.
type ConflictError struct {
	DownloadID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("song is already downloaded or queued (download %s)", e.DownloadID)
}

// TransientError wraps a network-level failure. The cache recovers from
// these by preserving its last-good snapshot; callers may surface them to
// the user but should not assume any server-side state changed.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
