package command

import (
	"strings"

	"github.com/nerrad567/relayshell/internal/device"
)

// Kind identifies the action of a command.
type Kind int

const (
	KindHelp Kind = iota
	KindOutput
	KindStatus
	KindToggleSchedule
	KindToggleThermostat
	KindReboot
)

// HelpName is the command that prints the command list.
const HelpName = "?"

// Command is one entry of the command table.
type Command struct {
	Name string
	Kind Kind

	// Output and On are set for KindOutput.
	Output string
	On     bool
}

// Registry is the immutable command table.
type Registry struct {
	commands []Command
	byName   map[string]Command
}

// NewRegistry builds the table: "<output> on" and "<output> off" for each
// output, then status, the two toggles, reboot, and "?".
func NewRegistry(outputs []device.Output) *Registry {
	var commands []Command
	for _, o := range outputs {
		commands = append(commands,
			Command{Name: o.Name + " on", Kind: KindOutput, Output: o.Name, On: true},
			Command{Name: o.Name + " off", Kind: KindOutput, Output: o.Name, On: false},
		)
	}
	commands = append(commands,
		Command{Name: "status", Kind: KindStatus},
		Command{Name: "toggle schedule", Kind: KindToggleSchedule},
		Command{Name: "toggle thermostat", Kind: KindToggleThermostat},
		Command{Name: "reboot", Kind: KindReboot},
		Command{Name: HelpName, Kind: KindHelp},
	)

	byName := make(map[string]Command, len(commands))
	for _, c := range commands {
		byName[c.Name] = c
	}
	return &Registry{commands: commands, byName: byName}
}

// Lookup finds a command by its exact name.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Names returns the command names in table order, without "?".
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for _, c := range r.commands {
		if c.Name == HelpName {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

// Complete returns the names that start with prefix, ignoring case, in table order.
func (r *Registry) Complete(prefix string) []string {
	upper := strings.ToUpper(prefix)
	var matches []string
	for _, name := range r.Names() {
		if strings.HasPrefix(strings.ToUpper(name), upper) {
			matches = append(matches, name)
		}
	}
	return matches
}

// HelpText returns the command list line and the exit hint.
func (r *Registry) HelpText() string {
	return `Available commands are "` + strings.Join(r.Names(), `", "`) + `", and "` + HelpName + "\"\n" +
		"Use ctrl+c to exit.\n"
}
