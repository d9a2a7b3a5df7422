package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for ACE Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Transport TransportConfig `yaml:"transport"`
	Variables VariablesConfig `yaml:"variables"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Thermal   ThermalConfig   `yaml:"thermal"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// DeviceConfig describes the filament changer this instance manages.
type DeviceConfig struct {
	// Name is used as the device tag in logs and metrics.
	Name string `yaml:"name"`

	// PollInterval is how often slots, loaded index and endless spool status
	// are re-queried (seconds).
	PollInterval int `yaml:"poll_interval"`

	// DryerDuration is the default drying duration in minutes.
	DryerDuration int `yaml:"dryer_duration"`
}

// TransportConfig selects how commands reach the device firmware.
type TransportConfig struct {
	// Type is "mqtt" or "serial".
	Type   string       `yaml:"type"`
	Serial SerialConfig `yaml:"serial"`
}

// SerialConfig contains settings for a direct serial G-code link.
type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
	// ReadTimeout bounds a single line read (milliseconds).
	ReadTimeout int `yaml:"read_timeout"`
}

// VariablesConfig controls the persisted variable store.
type VariablesConfig struct {
	// MirrorMQTT syncs variables with retained MQTT topics.
	MirrorMQTT bool `yaml:"mirror_mqtt"`

	// ForwardToFirmware also writes inventory changes with SAVE_VARIABLE.
	ForwardToFirmware bool `yaml:"forward_to_firmware"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// ThermalConfig contains the device temperature guard limits.
type ThermalConfig struct {
	Enabled bool    `yaml:"enabled"`
	MinTemp float64 `yaml:"min_temp"`
	MaxTemp float64 `yaml:"max_temp"`
	// SampleInterval is in milliseconds.
	SampleInterval int `yaml:"sample_interval"`
}

// HistoryConfig controls how long state history is kept.
type HistoryConfig struct {
	// Retention is in hours. Zero keeps history forever.
	Retention int `yaml:"retention"`
	// PruneInterval is in minutes.
	PruneInterval int `yaml:"prune_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
// An empty secret disables authentication on the command routes.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ACECORE_SECTION_KEY
// For example: ACECORE_DATABASE_PATH, ACECORE_SERIAL_DEVICE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Name:          "ace",
			PollInterval:  5,
			DryerDuration: 240,
		},
		Transport: TransportConfig{
			Type: "mqtt",
			Serial: SerialConfig{
				Device:      "/dev/ttyACM0",
				Baud:        115200,
				ReadTimeout: 500,
			},
		},
		Variables: VariablesConfig{
			MirrorMQTT: true,
		},
		Database: DatabaseConfig{
			Path:        "./data/acecore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "acecore",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 7125,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Thermal: ThermalConfig{
			Enabled:        true,
			MinTemp:        0,
			MaxTemp:        70,
			SampleInterval: 1000,
		},
		History: HistoryConfig{
			Retention:     168,
			PruneInterval: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ACECORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ACECORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("ACECORE_TRANSPORT"); v != "" {
		cfg.Transport.Type = v
	}
	if v := os.Getenv("ACECORE_SERIAL_DEVICE"); v != "" {
		cfg.Transport.Serial.Device = v
	}

	if v := os.Getenv("ACECORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ACECORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ACECORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("ACECORE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("ACECORE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("ACECORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("ACECORE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.PollInterval < 1 {
		errs = append(errs, "device.poll_interval must be at least 1 second")
	}
	if c.Device.DryerDuration < 1 {
		errs = append(errs, "device.dryer_duration must be positive")
	}

	switch c.Transport.Type {
	case "mqtt":
	case "serial":
		if c.Transport.Serial.Device == "" {
			errs = append(errs, "transport.serial.device is required for serial transport")
		}
		if c.Transport.Serial.Baud <= 0 {
			errs = append(errs, "transport.serial.baud must be positive")
		}
	default:
		errs = append(errs, "transport.type must be mqtt or serial")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Thermal.Enabled {
		if c.Thermal.MaxTemp <= c.Thermal.MinTemp {
			errs = append(errs, "thermal.max_temp must be greater than thermal.min_temp")
		}
		if c.Thermal.SampleInterval < 100 {
			errs = append(errs, "thermal.sample_interval must be at least 100ms")
		}
	}

	if c.History.Retention < 0 {
		errs = append(errs, "history.retention must not be negative")
	}
	if c.History.Retention > 0 && c.History.PruneInterval < 1 {
		errs = append(errs, "history.prune_interval must be at least 1 minute")
	}

	const minJWTSecretLength = 32
	if s := c.Security.JWT.Secret; s != "" && len(s) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters when set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPollInterval returns the device poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Device.PollInterval) * time.Second
}

// GetSampleInterval returns the thermal sample interval as a Duration.
func (c *Config) GetSampleInterval() time.Duration {
	return time.Duration(c.Thermal.SampleInterval) * time.Millisecond
}

// GetHistoryRetention returns how long state history is kept, or zero to
// keep it forever.
func (c *Config) GetHistoryRetention() time.Duration {
	return time.Duration(c.History.Retention) * time.Hour
}

// GetPruneInterval returns the history prune interval as a Duration.
func (c *Config) GetPruneInterval() time.Duration {
	return time.Duration(c.History.PruneInterval) * time.Minute
}

// GetSerialReadTimeout returns the serial line read timeout as a Duration.
func (c *Config) GetSerialReadTimeout() time.Duration {
	return time.Duration(c.Transport.Serial.ReadTimeout) * time.Millisecond
}
