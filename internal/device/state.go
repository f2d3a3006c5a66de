package device

import "fmt"

// State is the process-wide device state.
//
// fansRunning is set only while the scheduler was the last writer to turn
// its output on. Thermostat control defers to the schedule while it is set.
type State struct {
	gpio    GPIO
	outputs []Output

	scheduleEnabled   bool
	thermostatEnabled bool

	fansRunning bool
	// runningOutput is the output the scheduler switched on.
	runningOutput string

	observers []Observer
	logger    Logger
}

// NewState creates a State over the given GPIO and output set.
func NewState(gpio GPIO, outputs []Output) *State {
	return &State{
		gpio:    gpio,
		outputs: outputs,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the state.
func (s *State) SetLogger(logger Logger) {
	s.logger = logger
}

// AddObserver registers an observer for state changes.
func (s *State) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Outputs returns the outputs in display order.
func (s *State) Outputs() []Output {
	return s.outputs
}

// Output looks up an output by name.
func (s *State) Output(name string) (Output, bool) {
	for _, o := range s.outputs {
		if o.Name == name {
			return o, true
		}
	}
	return Output{}, false
}

// OutputOn reads the current level of an output.
func (s *State) OutputOn(name string) (bool, error) {
	if _, ok := s.Output(name); !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownOutput, name)
	}
	on, err := s.gpio.Get(name)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", name, err)
	}
	return on, nil
}

// SetOutput drives an output and notifies observers if the level changed.
//
// A schedule write records fansRunning; a command write to the output the
// schedule is holding clears it.
func (s *State) SetOutput(name string, on bool, source Source) error {
	if _, ok := s.Output(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOutput, name)
	}

	prev, prevErr := s.gpio.Get(name)
	if err := s.gpio.Set(name, on); err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}

	switch {
	case source == SourceSchedule:
		s.fansRunning = on
		s.runningOutput = name
	case name == s.runningOutput:
		s.fansRunning = false
	}

	if prevErr == nil && prev == on {
		return nil
	}

	s.logger.Info("output changed", "output", name, "on", on, "source", string(source))
	for _, o := range s.observers {
		o.OutputChanged(name, on, source)
	}
	return nil
}

// ScheduleEnabled reports whether the built-in schedule is active.
func (s *State) ScheduleEnabled() bool {
	return s.scheduleEnabled
}

// SetScheduleEnabled sets the schedule flag.
func (s *State) SetScheduleEnabled(enabled bool, source Source) {
	if s.scheduleEnabled == enabled {
		return
	}
	s.scheduleEnabled = enabled
	s.notifyFlag(FlagSchedule, enabled, source)
}

// ToggleSchedule flips the schedule flag and returns the new value.
func (s *State) ToggleSchedule() bool {
	s.SetScheduleEnabled(!s.scheduleEnabled, SourceCommand)
	return s.scheduleEnabled
}

// ThermostatEnabled reports whether thermostat mode is on.
func (s *State) ThermostatEnabled() bool {
	return s.thermostatEnabled
}

// ToggleThermostat flips thermostat mode and returns the new value.
func (s *State) ToggleThermostat() bool {
	s.thermostatEnabled = !s.thermostatEnabled
	s.notifyFlag(FlagThermostat, s.thermostatEnabled, SourceCommand)
	return s.thermostatEnabled
}

// FansRunning reports whether the scheduler currently holds its output on.
func (s *State) FansRunning() bool {
	return s.fansRunning
}

// Announce reports the current level of every output and flag to the
// observers, whether or not it changed. Outputs that cannot be read are
// skipped.
func (s *State) Announce(source Source) {
	for _, out := range s.outputs {
		on, err := s.gpio.Get(out.Name)
		if err != nil {
			s.logger.Warn("reading output failed", "output", out.Name, "error", err)
			continue
		}
		for _, o := range s.observers {
			o.OutputChanged(out.Name, on, source)
		}
	}

	flags := []struct {
		name string
		on   bool
	}{
		{FlagSchedule, s.scheduleEnabled},
		{FlagThermostat, s.thermostatEnabled},
	}
	for _, f := range flags {
		for _, o := range s.observers {
			o.FlagChanged(f.name, f.on, source)
		}
	}
	s.logger.Debug("state announced", "source", string(source))
}

func (s *State) notifyFlag(name string, on bool, source Source) {
	s.logger.Info("flag changed", "flag", name, "on", on, "source", string(source))
	for _, o := range s.observers {
		o.FlagChanged(name, on, source)
	}
}
