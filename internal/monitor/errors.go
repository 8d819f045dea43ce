package monitor

import "errors"

var (
	// ErrStopped is returned by Submit once Run has returned.
	ErrStopped = errors.New("monitor: stopped")

	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("monitor: already running")
)
