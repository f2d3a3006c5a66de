package device

// Output describes one relay output.
type Output struct {
	// Name is the command word, e.g. "fans" in "fans on".
	Name string

	// Label is the display name used in replies, e.g. "Fans".
	Label string

	// Plural selects "are" over "is" in replies.
	Plural bool
}

// Verb returns "are" for plural labels and "is" otherwise.
func (o Output) Verb() string {
	if o.Plural {
		return "are"
	}
	return "is"
}

// DefaultOutputs are the relays wired on the controller board.
var DefaultOutputs = []Output{
	{Name: "led", Label: "LED"},
	{Name: "fans", Label: "Fans", Plural: true},
}

// Flag names reported to observers.
const (
	FlagSchedule   = "schedule"
	FlagThermostat = "thermostat"
)

// Source identifies what caused a state change.
type Source string

const (
	SourceCommand  Source = "command"
	SourceSchedule Source = "schedule"
	SourceStartup  Source = "startup"
)

// GPIO drives the physical relay lines by output name.
type GPIO interface {
	Set(name string, on bool) error
	Get(name string) (bool, error)
}

// Observer is notified after a state change has been applied.
type Observer interface {
	OutputChanged(name string, on bool, source Source)
	FlagChanged(name string, on bool, source Source)
}

// Logger defines the logging interface used by State.
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
