//go:build linux

package hardware

import (
	"errors"
	"fmt"
	"sync"

	gpiod "github.com/warthog618/go-gpiocdev"
)

// consumer labels our line requests in gpioinfo output.
const consumer = "relayshell"

// LineDriver switches relay outputs through requested GPIO lines.
// It satisfies device.GPIO.
type LineDriver struct {
	mu    sync.Mutex
	chip  *gpiod.Chip
	lines map[string]*gpiod.Line
}

// OpenGPIO opens chip and requests each named line as an output driven low.
//
// Parameters:
//   - chip: Character device name, e.g. "gpiochip0"
//   - lines: Output name to line offset
//
// Returns:
//   - *LineDriver: Driver holding every requested line
//   - error: If the chip or any line cannot be requested
func OpenGPIO(chip string, lines map[string]int) (*LineDriver, error) {
	c, err := gpiod.NewChip(chip, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open chip %s: %w", chip, err)
	}

	d := &LineDriver{chip: c, lines: make(map[string]*gpiod.Line, len(lines))}
	for name, offset := range lines {
		line, err := c.RequestLine(offset, gpiod.AsOutput(0))
		if err != nil {
			d.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("request output %s on line %d: %w", name, offset, err)
		}
		d.lines[name] = line
	}
	return d, nil
}

// Set drives the named output high (on) or low (off).
func (d *LineDriver) Set(name string, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	line, ok := d.lines[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLine, name)
	}
	value := 0
	if on {
		value = 1
	}
	if err := line.SetValue(value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// Get reads back the level of the named output.
func (d *LineDriver) Get(name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	line, ok := d.lines[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownLine, name)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	return v == 1, nil
}

// Close releases every line and the chip.
func (d *LineDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for name, line := range d.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %s: %w", name, err))
		}
	}
	d.lines = map[string]*gpiod.Line{}

	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		d.chip = nil
	}
	return errors.Join(errs...)
}
