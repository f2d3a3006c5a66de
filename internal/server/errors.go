package server

import "errors"

var (
	// ErrRebootRequested is returned by Serve and Run after a session
	// issued the reboot command.
	ErrRebootRequested = errors.New("server: reboot requested")

	// ErrNoDeadline is returned when the listener cannot bound Accept.
	ErrNoDeadline = errors.New("server: listener does not support deadlines")
)
