// Package device holds the relay output state and the automation flags.
//
// State is the single owner of everything the shell can change: the named
// relay outputs (driven through a GPIO implementation) and the schedule and
// thermostat toggles. It is mutated only from the connection loop, so it
// carries no locks.
//
// Observers registered with AddObserver are told about every real change,
// tagged with the Source that caused it. Telemetry hangs off this hook.
package device
