package mqtt

import "fmt"

// TopicRoot is the first level of every relayshell topic.
const TopicRoot = "relayshell"

// Topics builds relayshell MQTT topics for one site.
//
//	topics := mqtt.Topics{Site: "greenhouse"}
//	topics.OutputState("fans") // "relayshell/greenhouse/state/fans"
type Topics struct {
	Site string
}

func (t Topics) prefix() string {
	return fmt.Sprintf("%s/%s", TopicRoot, t.Site)
}

// OutputState returns the retained state topic for a relay output.
//
// Example: relayshell/greenhouse/state/fans
func (t Topics) OutputState(name string) string {
	return fmt.Sprintf("%s/state/%s", t.prefix(), name)
}

// SystemStatus returns the online/offline status topic, also used for the LWT.
//
// Example: relayshell/greenhouse/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.prefix())
}

// AllOutputStates returns a pattern matching every output state of the site.
//
// Pattern: relayshell/greenhouse/state/+
func (t Topics) AllOutputStates() string {
	return fmt.Sprintf("%s/state/+", t.prefix())
}

// Flag returns the retained topic for a controller flag such as the
// schedule switch.
//
// Example: relayshell/greenhouse/flag/schedule
func (t Topics) Flag(name string) string {
	return fmt.Sprintf("%s/flag/%s", t.prefix(), name)
}
