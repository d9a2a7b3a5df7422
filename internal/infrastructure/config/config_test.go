package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
device:
  name: "ace-left"
  poll_interval: 3
transport:
  type: "serial"
  serial:
    device: "/dev/ttyUSB1"
    baud: 250000
database:
  path: "/tmp/ace.db"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "ace-test"
  qos: 1
api:
  port: 7125
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Name != "ace-left" {
		t.Errorf("Device.Name = %q, want %q", cfg.Device.Name, "ace-left")
	}
	if cfg.Transport.Type != "serial" {
		t.Errorf("Transport.Type = %q, want %q", cfg.Transport.Type, "serial")
	}
	if cfg.Transport.Serial.Baud != 250000 {
		t.Errorf("Transport.Serial.Baud = %d, want 250000", cfg.Transport.Serial.Baud)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if got := cfg.GetPollInterval(); got != 3*time.Second {
		t.Errorf("GetPollInterval() = %v, want 3s", got)
	}
	// Unset values keep their defaults.
	if cfg.Device.DryerDuration != 240 {
		t.Errorf("Device.DryerDuration = %d, want default 240", cfg.Device.DryerDuration)
	}
	if cfg.Thermal.MaxTemp != 70 {
		t.Errorf("Thermal.MaxTemp = %v, want default 70", cfg.Thermal.MaxTemp)
	}
	if got := cfg.GetHistoryRetention(); got != 168*time.Hour {
		t.Errorf("GetHistoryRetention() = %v, want default 168h", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "/tmp/from-file.db"
`)
	t.Setenv("ACECORE_DATABASE_PATH", "/tmp/from-env.db")
	t.Setenv("ACECORE_MQTT_HOST", "env-broker")
	t.Setenv("ACECORE_API_PORT", "9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/tmp/from-env.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("MQTT.Broker.Host = %q, want env override", cfg.MQTT.Broker.Host)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "bad transport",
			mutate:  func(c *Config) { c.Transport.Type = "carrier-pigeon" },
			wantErr: "transport.type",
		},
		{
			name: "serial without device",
			mutate: func(c *Config) {
				c.Transport.Type = "serial"
				c.Transport.Serial.Device = ""
			},
			wantErr: "transport.serial.device",
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Device.PollInterval = 0 },
			wantErr: "device.poll_interval",
		},
		{
			name:    "bad qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "inverted thermal limits",
			mutate:  func(c *Config) { c.Thermal.MinTemp = 80 },
			wantErr: "thermal.max_temp",
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: "security.jwt.secret",
		},
		{
			name:    "negative history retention",
			mutate:  func(c *Config) { c.History.Retention = -1 },
			wantErr: "history.retention",
		},
		{
			name:    "retention without prune interval",
			mutate:  func(c *Config) { c.History.PruneInterval = 0 },
			wantErr: "history.prune_interval",
		},
		{
			name: "history kept forever",
			mutate: func(c *Config) {
				c.History.Retention = 0
				c.History.PruneInterval = 0
			},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Database.Path = ""
	cfg.MQTT.QoS = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	if !strings.Contains(err.Error(), "database.path") || !strings.Contains(err.Error(), "mqtt.qos") {
		t.Errorf("Validate() error = %v, want both problems reported", err)
	}
}
