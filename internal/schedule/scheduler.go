package schedule

import (
	"fmt"
	"time"

	"github.com/nerrad567/relayshell/internal/device"
)

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Scheduler applies marks to one output of a device.State.
type Scheduler struct {
	state  *device.State
	output string
	marks  []Mark
	logger Logger
}

// New creates a Scheduler driving output with the given marks.
func New(state *device.State, output string, marks []Mark) *Scheduler {
	return &Scheduler{
		state:  state,
		output: output,
		marks:  marks,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// Run evaluates the schedule at now, which must be in local site time.
//
// Calling Run more than once in the same minute is harmless: the output is
// driven to the same level again and observers see no change.
//
// Returns:
//   - error: If driving the output fails
func (s *Scheduler) Run(now time.Time) error {
	if s.state.ScheduleEnabled() {
		for _, m := range s.marks {
			if !m.Matches(now) {
				continue
			}
			if err := s.state.SetOutput(s.output, m.On, device.SourceSchedule); err != nil {
				return fmt.Errorf("schedule mark %s: %w", m, err)
			}
			s.logger.Debug("schedule mark applied", "mark", m.String(), "output", s.output)
		}
	}

	if s.state.ThermostatEnabled() && !s.state.FansRunning() {
		s.thermostat(now)
	}
	return nil
}

// thermostat is the hook for temperature-driven control. Thermostat mode
// can be toggled and reported, but it does not switch anything yet.
func (s *Scheduler) thermostat(_ time.Time) {}
