package device

import "errors"

// Domain errors for the device package.
var (
	// ErrUnknownOutput is returned for an output name that is not compiled in.
	ErrUnknownOutput = errors.New("device: unknown output")
)
