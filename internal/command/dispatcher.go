package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/relayshell/internal/device"
)

// settingScheduleEnabled is the settings key holding the schedule flag.
const settingScheduleEnabled = "schedule_enabled"

// Reply is the result of one command.
type Reply struct {
	// Text is sent to the session verbatim.
	Text string

	// Reboot asks the session to end and the process to restart once Text is sent.
	Reboot bool
}

// Clock supplies the time shown in status replies.
type Clock interface {
	Now() time.Time
}

// Sensor reads the temperature in Fahrenheit.
type Sensor interface {
	ReadFahrenheit() (float64, error)
}

// Settings persists the schedule flag.
type Settings interface {
	SetBool(ctx context.Context, key string, value bool) error
}

// Logger defines the logging interface used by the Dispatcher.
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

// Dispatcher executes commands against a device.State.
type Dispatcher struct {
	registry *Registry
	state    *device.State
	clock    Clock

	siteName string
	sensor   Sensor
	settings Settings
	notices  []string
	logger   Logger
}

// NewDispatcher creates a Dispatcher. Sensor and settings are optional and
// set with SetSensor and SetSettings.
func NewDispatcher(registry *Registry, state *device.State, clock Clock) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		state:    state,
		clock:    clock,
		siteName: "relayshell",
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetSiteName sets the name shown in the welcome line.
func (d *Dispatcher) SetSiteName(name string) {
	d.siteName = name
}

// SetSensor enables the temperature line in status replies.
func (d *Dispatcher) SetSensor(sensor Sensor) {
	d.sensor = sensor
}

// SetSettings enables persisting the schedule flag on toggle.
func (d *Dispatcher) SetSettings(settings Settings) {
	d.settings = settings
}

// AddNotice adds a line shown in every banner, e.g. a startup settings failure.
func (d *Dispatcher) AddNotice(notice string) {
	d.notices = append(d.notices, notice)
}

// Banner returns the text sent when a session opens, without the prompt.
func (d *Dispatcher) Banner(_ context.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome to %s!\n", d.siteName)
	for _, n := range d.notices {
		b.WriteString(n + "\n")
	}
	d.writeStatus(&b, false)
	b.WriteString(d.registry.HelpText())
	return b.String()
}

// Dispatch runs cmd, which must already be trimmed, and returns the reply.
// Unknown input never fails; it gets the unknown command reply.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd string) Reply {
	c, ok := d.registry.Lookup(cmd)
	if !ok {
		d.logger.Debug("unknown command", "command", cmd)
		return Reply{Text: "Unknown command\n"}
	}
	d.logger.Info("command dispatched", "command", cmd)

	switch c.Kind {
	case KindHelp:
		return Reply{Text: d.registry.HelpText()}
	case KindOutput:
		return Reply{Text: d.setOutput(c.Output, c.On)}
	case KindStatus:
		var b strings.Builder
		d.writeStatus(&b, true)
		return Reply{Text: b.String()}
	case KindToggleSchedule:
		return Reply{Text: d.toggleSchedule(ctx)}
	case KindToggleThermostat:
		on := d.state.ToggleThermostat()
		return Reply{Text: fmt.Sprintf("Thermostat is now %s (not yet functional)\n", enabledText(on))}
	case KindReboot:
		return Reply{Text: "Rebooting...\n", Reboot: true}
	default:
		return Reply{Text: "Unknown command\n"}
	}
}

func (d *Dispatcher) setOutput(name string, on bool) string {
	o, _ := d.state.Output(name)
	if err := d.state.SetOutput(name, on, device.SourceCommand); err != nil {
		d.logger.Error("switching output failed", "output", name, "error", err)
		return fmt.Sprintf("Failed to switch %s: %v\n", o.Label, err)
	}
	return fmt.Sprintf("%s %s now %s\n", o.Label, o.Verb(), onText(on))
}

func (d *Dispatcher) toggleSchedule(ctx context.Context) string {
	on := d.state.ToggleSchedule()
	text := fmt.Sprintf("Schedule is now %s\n", enabledText(on))

	if d.settings != nil {
		if err := d.settings.SetBool(ctx, settingScheduleEnabled, on); err != nil {
			d.logger.Warn("saving schedule setting failed", "error", err)
			text += fmt.Sprintf("Warning: schedule setting not saved: %v\n", err)
		}
	}
	return text
}

// writeStatus writes the relay, flag and time lines, and the temperature
// line when withSensor is set and a sensor is configured.
func (d *Dispatcher) writeStatus(b *strings.Builder, withSensor bool) {
	for _, o := range d.state.Outputs() {
		state := "UNKNOWN"
		if on, err := d.state.OutputOn(o.Name); err == nil {
			state = onText(on)
		} else {
			d.logger.Warn("reading output failed", "output", o.Name, "error", err)
		}
		fmt.Fprintf(b, "%s %s currently %s\n", o.Label, o.Verb(), state)
	}
	fmt.Fprintf(b, "Schedule is %s\n", enabledText(d.state.ScheduleEnabled()))
	fmt.Fprintf(b, "Thermostat is %s\n", enabledText(d.state.ThermostatEnabled()))

	now := d.clock.Now()
	fmt.Fprintf(b, "The time is %02d:%02d:%02d\n", now.Hour(), now.Minute(), now.Second())

	if withSensor && d.sensor != nil {
		f, err := d.sensor.ReadFahrenheit()
		if err != nil {
			d.logger.Debug("temperature read failed", "error", err)
			b.WriteString("Temperature sensor unavailable\n")
			return
		}
		fmt.Fprintf(b, "Temperature: %.2f°F\n", f)
	}
}

func onText(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func enabledText(on bool) string {
	if on {
		return "ENABLED"
	}
	return "DISABLED"
}
