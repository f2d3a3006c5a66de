package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by relayshell.
const (
	MeasurementOutputState = "output_state"
	MeasurementTemperature = "temperature"
)

// WriteOutputState records a relay transition.
//
// Parameters:
//   - name: Output name ("led", "fans")
//   - on: New state
//   - source: What caused the change ("command" or "schedule")
//   - at: Transition time
func (c *Client) WriteOutputState(name string, on bool, source string, at time.Time) {
	value := 0
	if on {
		value = 1
	}
	c.WritePointWithTime(MeasurementOutputState,
		map[string]string{"output": name, "source": source},
		map[string]any{"on": on, "value": value},
		at,
	)
}

// WriteTemperature records a sensor reading in both scales.
func (c *Client) WriteTemperature(celsius float64, at time.Time) {
	c.WritePointWithTime(MeasurementTemperature,
		map[string]string{"sensor": "ds18b20"},
		map[string]any{
			"celsius":    celsius,
			"fahrenheit": celsius*9/5 + 32,
		},
		at,
	)
}

// WritePointWithTime writes a point with the site tag added.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(newPoint(c.site, measurement, tags, fields, timestamp))
}

func newPoint(site, measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) *write.Point {
	allTags := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		allTags[k] = v
	}
	allTags["site"] = site
	return write.NewPoint(measurement, allTags, fields, timestamp)
}
