package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultDeviceGlob matches the first DS18B20 on the w1 bus.
const DefaultDeviceGlob = "/sys/bus/w1/devices/28-*/w1_slave"

// W1Sensor reads a DS18B20 through the w1-therm sysfs interface.
type W1Sensor struct {
	glob string
}

// NewW1Sensor creates a sensor reading the first file matching glob.
// An empty glob uses DefaultDeviceGlob.
func NewW1Sensor(glob string) *W1Sensor {
	if glob == "" {
		glob = DefaultDeviceGlob
	}
	return &W1Sensor{glob: glob}
}

// ReadCelsius triggers a conversion and returns the temperature in °C.
func (s *W1Sensor) ReadCelsius() (float64, error) {
	matches, err := filepath.Glob(s.glob)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: no device matches %s", ErrUnavailable, s.glob)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return parseW1Slave(string(data))
}

// ReadFahrenheit returns the temperature in °F.
func (s *W1Sensor) ReadFahrenheit() (float64, error) {
	c, err := s.ReadCelsius()
	if err != nil {
		return 0, err
	}
	return CelsiusToFahrenheit(c), nil
}

// CelsiusToFahrenheit converts °C to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// parseW1Slave decodes the two-line w1_slave format:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func parseW1Slave(data string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("%w: truncated output", ErrBadReading)
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, fmt.Errorf("%w: crc check failed", ErrBadReading)
	}

	_, raw, found := strings.Cut(lines[1], "t=")
	if !found {
		return 0, fmt.Errorf("%w: no temperature field", ErrBadReading)
	}
	milli, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadReading, err)
	}
	return float64(milli) / 1000, nil
}
