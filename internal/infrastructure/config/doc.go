// Package config handles loading and validating ACE Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with ACECORE_* environment variables
//   - Validation of required fields and value ranges
//
// Sensitive values (MQTT password, InfluxDB token, JWT secret) should be
// supplied through the environment rather than the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	interval := cfg.GetPollInterval()
package config
