package hal

import "errors"

var (
	// ErrEnvironmentUnreadable means the OS identity probe could not read
	// its source file. Init aborts before touching any hardware.
	ErrEnvironmentUnreadable = errors.New("environment descriptor is unreadable")

	// ErrNoBackendAvailable means every candidate backend failed to
	// initialize. This is the only unrecoverable Init outcome.
	ErrNoBackendAvailable = errors.New("no gpio/spi backend is available")

	// ErrNotReady is returned by facade operations before a successful Init.
	ErrNotReady = errors.New("hal is not initialized")

	// ErrDataReadyTimeout means the data-ready pin never went low within
	// the allowed window.
	ErrDataReadyTimeout = errors.New("timeout waiting for data ready")
)
