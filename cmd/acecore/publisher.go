package main

import (
	"context"
	"encoding/json"

	"github.com/nerrad567/ace-core/internal/ace"
	"github.com/nerrad567/ace-core/internal/infrastructure/mqtt"
)

// retainedPublisher is the part of the MQTT client the state publisher uses.
type retainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

type warnLogger interface {
	Warn(msg string, args ...any)
}

// statePublisher mirrors every cache change to the retained ace/state
// topic. Observe runs under the cache lock, so it only hands the encoded
// state to Run; a newer state replaces one not yet published.
type statePublisher struct {
	client  retainedPublisher
	topic   string
	pending chan []byte
	logger  warnLogger
}

func newStatePublisher(client retainedPublisher, logger warnLogger) *statePublisher {
	return &statePublisher{
		client:  client,
		topic:   mqtt.Topics{}.State(),
		pending: make(chan []byte, 1),
		logger:  logger,
	}
}

// Observe is an ace.Observer.
func (p *statePublisher) Observe(state ace.DeviceState, source ace.Source) {
	payload, err := json.Marshal(map[string]any{"source": source, "state": state})
	if err != nil {
		p.logger.Warn("encoding state for MQTT failed", "error", err)
		return
	}
	for {
		select {
		case p.pending <- payload:
			return
		default:
		}
		// Drop the stale entry and retry.
		select {
		case <-p.pending:
		default:
		}
	}
}

// Run publishes queued states until ctx is cancelled.
func (p *statePublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload := <-p.pending:
			if err := p.client.PublishRetained(p.topic, payload); err != nil {
				p.logger.Warn("publishing state failed", "topic", p.topic, "error", err)
			}
		}
	}
}
