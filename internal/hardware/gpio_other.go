//go:build !linux

package hardware

// LineDriver is unavailable off Linux.
type LineDriver struct{}

// OpenGPIO always fails off Linux.
func OpenGPIO(string, map[string]int) (*LineDriver, error) {
	return nil, ErrUnsupported
}

// Set implements device.GPIO.
func (*LineDriver) Set(string, bool) error { return ErrUnsupported }

// Get implements device.GPIO.
func (*LineDriver) Get(string) (bool, error) { return false, ErrUnsupported }

// Close is a no-op.
func (*LineDriver) Close() error { return nil }
