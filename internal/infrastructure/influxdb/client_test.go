//go:build integration

package influxdb_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/ace-core/internal/infrastructure/config"
	"github.com/nerrad567/ace-core/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "acecore-dev-token",
		Org:           "acecore",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connect opens a client or skips when no server is running.
func connect(t *testing.T) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

// captureErrors records the last async write error.
func captureErrors(client *influxdb.Client) func() error {
	var mu sync.Mutex
	var last error
	client.SetOnError(func(err error) {
		mu.Lock()
		last = err
		mu.Unlock()
	})
	return func() error {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = -5
	cfg.FlushInterval = 0

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect() with default batch settings")
	}
}

func TestHealthCheck(t *testing.T) {
	client := connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	if err := client.HealthCheck(cancelled); err == nil {
		t.Error("HealthCheck() with cancelled context error = nil")
	}
}

func TestWrites(t *testing.T) {
	client := connect(t)
	lastErr := captureErrors(client)

	client.WriteDeviceMetric("ace-test", "temperature_c", 31.5)
	client.WriteSlotMetric("ace-test", 2, map[string]interface{}{"target_temp_c": 240, "ready": true})
	client.WriteStateChange("ace-test", "device", 7, time.Now().Add(-time.Hour))
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := lastErr(); err != nil {
		t.Errorf("write error = %v", err)
	}
}

func TestClose(t *testing.T) {
	client := connect(t)

	client.WriteDeviceMetric("ace-test", "fan_speed", 1.0)
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	client.Flush() // no-op after close
}
