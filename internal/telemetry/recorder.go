package telemetry

import (
	"time"

	"github.com/nerrad567/relayshell/internal/device"
)

// Publisher sends retained state messages, typically *mqtt.Client.
type Publisher interface {
	PublishOutputState(name string, on bool, source string, at time.Time) error
	PublishFlag(name string, enabled bool, source string, at time.Time) error
}

// History stores time-series points, typically *influxdb.Client.
type History interface {
	WriteOutputState(name string, on bool, source string, at time.Time)
	WriteTemperature(celsius float64, at time.Time)
}

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// Logger defines the logging interface for the recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Recorder forwards state changes to the configured sinks.
// A nil sink is skipped.
type Recorder struct {
	publisher Publisher
	history   History
	clock     Clock
	logger    Logger
}

// NewRecorder creates a Recorder. Either sink may be nil.
func NewRecorder(publisher Publisher, history History, clock Clock) *Recorder {
	return &Recorder{
		publisher: publisher,
		history:   history,
		clock:     clock,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// OutputChanged implements device.Observer.
func (r *Recorder) OutputChanged(name string, on bool, source device.Source) {
	at := r.clock.Now()

	if r.publisher != nil {
		if err := r.publisher.PublishOutputState(name, on, string(source), at); err != nil {
			r.logger.Warn("publishing output state failed", "output", name, "error", err)
		}
	}
	if r.history != nil {
		r.history.WriteOutputState(name, on, string(source), at)
	}
	r.logger.Debug("output state recorded", "output", name, "on", on, "source", source)
}

// FlagChanged implements device.Observer.
func (r *Recorder) FlagChanged(name string, on bool, source device.Source) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishFlag(name, on, string(source), r.clock.Now()); err != nil {
		r.logger.Warn("publishing flag failed", "flag", name, "error", err)
	}
}

// RecordTemperature writes a reading to history.
func (r *Recorder) RecordTemperature(celsius float64) {
	if r.history != nil {
		r.history.WriteTemperature(celsius, r.clock.Now())
	}
}
