package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/sqlbridge/internal/bridge"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
//
// Retained messages are stored by the broker and handed to new subscribers;
// use them for state (status, latest stats), not events.
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
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}

// statsPayload is the JSON body published on the stats topic.
type statsPayload struct {
	bridge.Stats
	Completed uint64 `json:"completed"`
	Timestamp string `json:"timestamp"`
}

// PublishStats publishes a worker statistics snapshot, retained, on
// sqlbridge/stats/{instance}/{name}.
func (c *Client) PublishStats(ctx context.Context, stats bridge.Stats) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publishing stats: %w", err)
	}

	payload, err := json.Marshal(statsPayload{
		Stats:     stats,
		Completed: stats.Completed(),
		Timestamp: timestamp(),
	})
	if err != nil {
		return fmt.Errorf("%w: encoding stats: %w", ErrPublishFailed, err)
	}

	return c.PublishRetained(Topics{}.Stats(c.instance, stats.Name), payload)
}
