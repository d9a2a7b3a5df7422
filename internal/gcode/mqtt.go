package gcode

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MQTTClient is the subset of the infrastructure MQTT client the channel needs.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	IsConnected() bool
}

// ScriptMessage is published for every command.
type ScriptMessage struct {
	ID        string `json:"id"`
	Script    string `json:"script"`
	Timestamp string `json:"timestamp"`
}

// responseMessage is the JSON form a bridge may use for responses.
// Plain-text payloads are accepted as well.
type responseMessage struct {
	Response string `json:"response"`
}

// MQTTChannel sends scripts over MQTT and receives firmware output from the
// bridge's response topic.
type MQTTChannel struct {
	client        MQTTClient
	scriptTopic   string
	responseTopic string
	qos           byte

	logger Logger
	mu     sync.RWMutex
}

// NewMQTTChannel creates a channel publishing to scriptTopic and listening on
// responseTopic.
func NewMQTTChannel(client MQTTClient, scriptTopic, responseTopic string, qos byte) *MQTTChannel {
	return &MQTTChannel{
		client:        client,
		scriptTopic:   scriptTopic,
		responseTopic: responseTopic,
		qos:           qos,
		logger:        noopLogger{},
	}
}

// SetLogger sets the logger for the channel.
func (c *MQTTChannel) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *MQTTChannel) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// Start subscribes to the response topic. Each line of each payload is passed
// to handler. The subscription is restored by the MQTT client on reconnect.
func (c *MQTTChannel) Start(_ context.Context, handler LineHandler) error {
	if handler == nil {
		return fmt.Errorf("gcode: nil line handler")
	}
	err := c.client.Subscribe(c.responseTopic, c.qos, func(_ string, payload []byte) {
		for _, line := range decodeResponse(payload) {
			handler(line)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", c.responseTopic, err)
	}
	c.log().Info("gcode response subscription active", "topic", c.responseTopic)
	return nil
}

// Send publishes script and returns without waiting for the firmware.
func (c *MQTTChannel) Send(ctx context.Context, script string) error {
	script, err := checkScript(script)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.client.IsConnected() {
		return ErrNotConnected
	}

	msg := ScriptMessage{
		ID:        uuid.NewString(),
		Script:    script,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling script: %w", err)
	}

	if err := c.client.Publish(c.scriptTopic, payload, c.qos, false); err != nil {
		return fmt.Errorf("publishing script: %w", err)
	}
	c.log().Debug("gcode sent", "id", msg.ID, "script", script)
	return nil
}

func decodeResponse(payload []byte) []string {
	text := strings.TrimSpace(string(payload))
	if strings.HasPrefix(text, "{") {
		var msg responseMessage
		if err := json.Unmarshal(payload, &msg); err == nil {
			text = msg.Response
		}
	}
	return splitLines(text)
}
