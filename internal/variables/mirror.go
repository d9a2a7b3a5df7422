package variables

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/ace-core/internal/infrastructure/mqtt"
)

// Broker is the subset of the MQTT client the mirror needs.
type Broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	HasSubscription(topic string) bool
	PublishRetained(topic string, payload []byte) error
}

// ErrMirrorRunning is returned by Start when the variable topics are
// already subscribed.
var ErrMirrorRunning = errors.New("variables: mirror already running")

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// mirrorWriteTimeout bounds a store write triggered by an inbound message.
const mirrorWriteTimeout = 5 * time.Second

// Mirror keeps the store in step with retained ace/variables/{key} topics.
//
// Inbound messages are written to the store with source mqtt. Local writes
// are published retained. A retained message that echoes back carries the
// value already stored, so Set does not notify again and the loop ends.
type Mirror struct {
	store  *Store
	broker Broker
	qos    byte
	topics mqtt.Topics
	logger Logger

	watchOnce sync.Once
	stopped   atomic.Bool
}

// NewMirror creates a mirror between store and broker.
func NewMirror(store *Store, broker Broker, qos byte) *Mirror {
	return &Mirror{
		store:  store,
		broker: broker,
		qos:    qos,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the mirror.
func (m *Mirror) SetLogger(logger Logger) {
	m.logger = logger
}

// Start subscribes to the variable topics and begins publishing local
// writes.
func (m *Mirror) Start() error {
	topic := m.topics.AllVariables()
	if m.broker.HasSubscription(topic) {
		return ErrMirrorRunning
	}
	if err := m.broker.Subscribe(topic, m.qos, m.handleMessage); err != nil {
		return err
	}
	m.stopped.Store(false)
	m.watchOnce.Do(func() { m.store.Watch(m.publish) })
	return nil
}

// Stop unsubscribes from the variable topics. Local writes are no longer
// published.
func (m *Mirror) Stop() error {
	m.stopped.Store(true)
	return m.broker.Unsubscribe(m.topics.AllVariables())
}

func (m *Mirror) handleMessage(topic string, payload []byte) error {
	key, ok := m.topics.VariableKey(topic)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), mirrorWriteTimeout)
	defer cancel()
	return m.store.Set(ctx, key, string(payload), SourceMQTT)
}

func (m *Mirror) publish(key, value, source string) {
	if source == SourceMQTT || m.stopped.Load() {
		return
	}
	if err := m.broker.PublishRetained(m.topics.Variable(key), []byte(value)); err != nil {
		m.logger.Warn("variable mirror publish failed", "key", key, "error", err)
		return
	}
	m.logger.Debug("variable mirrored", "key", key)
}
