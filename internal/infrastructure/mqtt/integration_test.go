//go:build integration

package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// Integration tests need a broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func TestIntegration_Connect(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "acecore-int-connect"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
}

func TestIntegration_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998
	cfg.Reconnect.InitialDelay = 0

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "acecore-int-sub-track"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := []string{Topics{}.GCodeResponse(), Topics{}.DeviceStatus(), Topics{}.AllVariables()}
	handler := func(string, []byte) error { return nil }

	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}
	if client.SubscriptionCount() != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", topics[0])
	}
}

func TestIntegration_RetainedVariableRoundtrip(t *testing.T) {
	cfg := testConfig()

	cfg.Broker.ClientID = "acecore-int-pub"
	pub, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close()

	topic := Topics{}.Variable("ace_int_test")
	if err := pub.PublishRetained(topic, []byte("2")); err != nil {
		t.Fatalf("PublishRetained() error = %v", err)
	}

	cfg.Broker.ClientID = "acecore-int-sub"
	sub, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close()

	received := make(chan string, 1)
	var once sync.Once
	err = sub.Subscribe(topic, 1, func(_ string, p []byte) error {
		once.Do(func() { received <- string(p) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg != "2" {
			t.Errorf("received = %q, want 2", msg)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for retained message")
	}

	_ = pub.Publish(topic, nil, 1, true)
}
