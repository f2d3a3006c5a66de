// Package telemetry mirrors controller state to MQTT and InfluxDB.
//
// A Recorder is registered as a device.Observer. Every applied output
// change or flag change is published as a retained MQTT message and, for
// outputs, written as an InfluxDB point. Temperature readings taken for
// the status command are recorded through Sensor.
//
// Telemetry never blocks control: publish and write failures are logged
// and otherwise ignored.
package telemetry
