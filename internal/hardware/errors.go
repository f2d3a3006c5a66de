package hardware

import "errors"

var (
	// ErrUnsupported is returned by OpenGPIO on platforms without the GPIO
	// character device.
	ErrUnsupported = errors.New("hardware: gpio character device not supported on this platform")

	// ErrUnknownLine is returned when an output name has no line offset.
	ErrUnknownLine = errors.New("hardware: no line for output")

	// ErrUnavailable is returned when no temperature probe can be read.
	ErrUnavailable = errors.New("hardware: temperature sensor unavailable")

	// ErrBadReading is returned when the probe reports a CRC failure or an
	// unparseable value.
	ErrBadReading = errors.New("hardware: bad temperature reading")
)
