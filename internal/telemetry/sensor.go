package telemetry

import "github.com/nerrad567/relayshell/internal/hardware"

// CelsiusSensor reads a temperature in °C.
type CelsiusSensor interface {
	ReadCelsius() (float64, error)
}

// Sensor wraps a CelsiusSensor so every successful reading is recorded.
// It satisfies the Fahrenheit sensor used by the status command.
type Sensor struct {
	source   CelsiusSensor
	recorder *Recorder
}

// NewSensor wraps source, recording readings through recorder.
func NewSensor(source CelsiusSensor, recorder *Recorder) *Sensor {
	return &Sensor{source: source, recorder: recorder}
}

// ReadFahrenheit reads the source and records the value.
func (s *Sensor) ReadFahrenheit() (float64, error) {
	c, err := s.source.ReadCelsius()
	if err != nil {
		return 0, err
	}
	s.recorder.RecordTemperature(c)
	return hardware.CelsiusToFahrenheit(c), nil
}
