// Package mqtt publishes relayshell state to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained output state publishing
//   - Last Will and Testament (LWT) for offline detection
//
// The client is publish-only. Relay outputs change solely through the shell
// and the schedule; the broker is a read-side mirror for dashboards.
//
// # Topics
//
//	relayshell/{site}/state/{output}   retained {"on":true,"source":"command","timestamp":"..."}
//	relayshell/{site}/system/status    retained online/offline, LWT
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishOutputState("fans", true, "schedule", time.Now())
package mqtt
