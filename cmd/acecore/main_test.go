package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/ace-core/internal/ace"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want a config loading error", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("ACECORE_CONFIG", "")

	if path := getConfigPath(""); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("ACECORE_CONFIG", expected)

	if path := getConfigPath(""); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestGetConfigPath_FlagWins verifies the flag beats the environment.
func TestGetConfigPath_FlagWins(t *testing.T) {
	t.Setenv("ACECORE_CONFIG", "/from/env.yaml")

	if path := getConfigPath("/from/flag.yaml"); path != "/from/flag.yaml" {
		t.Errorf("getConfigPath() = %q, want the flag value", path)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "acecore "+version) {
		t.Errorf("output = %q", out.String())
	}
}

func TestClassifyCommand(t *testing.T) {
	input := strings.Join([]string{
		"// 2",
		"",
		"// - Currently enabled: True",
		"ok",
	}, "\n")

	var out bytes.Buffer
	root := newRootCommand()
	root.SetIn(strings.NewReader(input))
	root.SetOut(&out)
	root.SetArgs([]string{"classify"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var kinds []string
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r struct {
			Kind string `json:"kind"`
		}
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		kinds = append(kinds, r.Kind)
	}

	want := []string{"index", "endless_spool", "unrecognized"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenCommand_NoSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("device:\n  name: test\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("ACECORE_JWT_SECRET", "")

	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"token", "--config", path})

	if err := root.Execute(); err == nil {
		t.Fatal("token without a secret should fail")
	}
}

type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	got      chan struct{}
}

func (f *fakePublisher) PublishRetained(_ string, payload []byte) error {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()
	f.got <- struct{}{}
	return nil
}

type discardLogger struct{}

func (discardLogger) Warn(string, ...any) {}

func TestStatePublisher_KeepsLatest(t *testing.T) {
	pub := &fakePublisher{got: make(chan struct{}, 4)}
	p := newStatePublisher(pub, discardLogger{})

	for i := 0; i < 3; i++ {
		s := ace.NewDeviceState()
		s.LoadedSlot = i
		p.Observe(s, ace.SourceDevice)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-pub.got:
	case <-time.After(time.Second):
		t.Fatal("nothing published")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.payloads) != 1 {
		t.Fatalf("published %d payloads, want 1", len(pub.payloads))
	}
	var msg struct {
		Source string          `json:"source"`
		State  ace.DeviceState `json:"state"`
	}
	if err := json.Unmarshal(pub.payloads[0], &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if msg.State.LoadedSlot != 2 || msg.Source != string(ace.SourceDevice) {
		t.Errorf("published %+v, want the last state from device", msg)
	}
}

// TestRun_SuccessfulStartupAndShutdown tests full startup with running services.
// Requires MQTT broker at 127.0.0.1:1883.
func TestRun_SuccessfulStartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
device:
  name: test-ace
  poll_interval: 1

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "acecore-test-startup"
  qos: 1
  reconnect:
    initial_delay: 1
    max_delay: 5

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 17125
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx, configPath); err != nil {
		t.Logf("run() returned error: %v (may be due to missing MQTT broker)", err)
	}
}
