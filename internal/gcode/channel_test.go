package gcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// ============================================================================
// MQTT channel
// ============================================================================

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type mockMQTTClient struct {
	mu         sync.Mutex
	connected  bool
	published  []published
	handlers   map[string]func(string, []byte)
	publishErr error
}

func newMockMQTTClient() *mockMQTTClient {
	return &mockMQTTClient{connected: true, handlers: make(map[string]func(string, []byte))}
}

func (m *mockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, published{topic, payload, qos, retained})
	return nil
}

func (m *mockMQTTClient) Subscribe(topic string, _ byte, handler func(string, []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockMQTTClient) deliver(topic string, payload string) {
	m.mu.Lock()
	h := m.handlers[topic]
	m.mu.Unlock()
	if h != nil {
		h(topic, []byte(payload))
	}
}

func TestMQTTChannel_Send(t *testing.T) {
	client := newMockMQTTClient()
	ch := NewMQTTChannel(client, "acecore/ace/gcode/script", "acecore/ace/gcode/response", 1)

	if err := ch.Send(context.Background(), "ACE_QUERY_SLOTS"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(client.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(client.published))
	}
	p := client.published[0]
	if p.topic != "acecore/ace/gcode/script" {
		t.Errorf("topic = %s", p.topic)
	}
	if p.retained {
		t.Error("script must not be retained")
	}

	var msg ScriptMessage
	if err := json.Unmarshal(p.payload, &msg); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if msg.Script != "ACE_QUERY_SLOTS" {
		t.Errorf("script = %q", msg.Script)
	}
	if msg.ID == "" {
		t.Error("message id is empty")
	}
}

func TestMQTTChannel_SendErrors(t *testing.T) {
	client := newMockMQTTClient()
	ch := NewMQTTChannel(client, "s", "r", 0)

	if err := ch.Send(context.Background(), "   "); !errors.Is(err, ErrEmptyScript) {
		t.Errorf("Send(blank) error = %v, want ErrEmptyScript", err)
	}

	client.connected = false
	if err := ch.Send(context.Background(), "M112"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send(disconnected) error = %v, want ErrNotConnected", err)
	}

	client.connected = true
	client.publishErr = errors.New("broker gone")
	if err := ch.Send(context.Background(), "M112"); err == nil {
		t.Error("Send() expected publish error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client.publishErr = nil
	if err := ch.Send(ctx, "M112"); !errors.Is(err, context.Canceled) {
		t.Errorf("Send(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestMQTTChannel_ResponseLines(t *testing.T) {
	client := newMockMQTTClient()
	ch := NewMQTTChannel(client, "s", "r", 0)

	var got []string
	if err := ch.Start(context.Background(), func(line string) { got = append(got, line) }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	client.deliver("r", "// 2\r\n\n// - Currently enabled: True\n")
	client.deliver("r", `{"response": "ACE: Tool 1 loaded"}`)

	want := []string{"// 2", "// - Currently enabled: True", "ACE: Tool 1 loaded"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestMQTTChannel_StartNilHandler(t *testing.T) {
	ch := NewMQTTChannel(newMockMQTTClient(), "s", "r", 0)
	if err := ch.Start(context.Background(), nil); err == nil {
		t.Error("Start(nil) expected error")
	}
}

// ============================================================================
// Serial channel
// ============================================================================

// fakePort feeds scripted reads and records writes.
type fakePort struct {
	mu      sync.Mutex
	reads   chan []byte
	written bytes.Buffer
	closed  bool
	timeout time.Duration
}

func newFakePort() *fakePort {
	return &fakePort{reads: make(chan []byte, 16)}
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case data, ok := <-p.reads:
		if !ok {
			return 0, io.EOF
		}
		return copy(b, data), nil
	case <-time.After(5 * time.Millisecond):
		return 0, nil
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.reads)
	}
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func TestSerialChannel_Send(t *testing.T) {
	p := newFakePort()
	ch := newSerialChannel(p, "/dev/test", time.Millisecond)

	if err := ch.Send(context.Background(), " ACE_STOP_DRYING "); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := p.written.String(); got != "ACE_STOP_DRYING\n" {
		t.Errorf("written = %q", got)
	}

	if err := ch.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := ch.Send(context.Background(), "M112"); !errors.Is(err, ErrClosed) {
		t.Errorf("Send(after close) error = %v, want ErrClosed", err)
	}
}

func TestSerialChannel_ReadLoopSplitsLines(t *testing.T) {
	p := newFakePort()
	ch := newSerialChannel(p, "/dev/test", 10*time.Millisecond)

	var mu sync.Mutex
	var got []string
	if err := ch.Start(context.Background(), func(line string) {
		mu.Lock()
		got = append(got, line)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p.timeout != 10*time.Millisecond {
		t.Errorf("read timeout = %v", p.timeout)
	}

	p.reads <- []byte("// [{\"status\":")
	p.reads <- []byte("\"empty\"}]\r\nok\n\n")
	p.reads <- []byte("partial")
	_ = ch.Close()

	select {
	case <-ch.Done():
	case <-time.After(time.Second):
		t.Fatal("read loop did not exit")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{`// [{"status":"empty"}]`, "ok"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestSerialChannel_StopsOnContextCancel(t *testing.T) {
	p := newFakePort()
	ch := newSerialChannel(p, "/dev/test", time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	if err := ch.Start(ctx, func(string) {}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	select {
	case <-ch.Done():
	case <-time.After(time.Second):
		t.Fatal("read loop did not exit after cancel")
	}
}
