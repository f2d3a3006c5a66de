package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "relayshell/greenhouse/state/fans")
//   - payload: The message payload (max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker keeps the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishRetained publishes a retained message with the configured default QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true) //nolint:gosec // QoS validated by config
}

// OutputState is the retained payload published for a relay output.
type OutputState struct {
	On        bool   `json:"on"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// PublishOutputState publishes the retained state of a named output.
func (c *Client) PublishOutputState(name string, on bool, source string, at time.Time) error {
	payload, err := json.Marshal(OutputState{
		On:        on,
		Source:    source,
		Timestamp: at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("%w: encoding state: %w", ErrPublishFailed, err)
	}
	return c.PublishRetained(c.topics.OutputState(name), payload)
}

// PublishFlag publishes the retained state of a controller flag. The
// payload has the same shape as an output state.
func (c *Client) PublishFlag(name string, enabled bool, source string, at time.Time) error {
	payload, err := json.Marshal(OutputState{
		On:        enabled,
		Source:    source,
		Timestamp: at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("%w: encoding flag: %w", ErrPublishFailed, err)
	}
	return c.PublishRetained(c.topics.Flag(name), payload)
}
