package clock

import "errors"

var (
	// ErrNoServer is returned by Resync when no NTP server is configured.
	ErrNoServer = errors.New("clock: no ntp server configured")

	// ErrResyncFailed wraps NTP query and validation failures.
	ErrResyncFailed = errors.New("clock: resync failed")
)
