package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by Start when no story is available.
	ErrNotReady = errors.New("no story available")
	// ErrBusy is returned when a run is already in progress.
	ErrBusy = errors.New("practice run already in progress")
	// ErrNotRunning is returned by Cancel when nothing can be cancelled.
	ErrNotRunning = errors.New("no practice run in progress")
	// ErrNotSupported marks an absent narration or capture capability.
	ErrNotSupported = errors.New("capability not supported")
	// ErrAdapterTimeout marks an adapter call abandoned after the wait bound.
	ErrAdapterTimeout = errors.New("adapter did not return in time")
)

// AdapterError wraps a runtime failure of a narration or capture adapter.
// The controller logs these and keeps the schedule running.
type AdapterError struct {
	Adapter string
	Op      string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Adapter, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
