// Package influxdb records relayshell history in InfluxDB v2.
//
// Two measurements are written, both tagged with the site ID:
//   - output_state: one point per relay transition (tags output, source)
//   - temperature: one point per successful sensor read
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteOutputState("fans", true, "schedule", time.Now())
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Batch failures arrive on the SetOnError callback.
package influxdb
