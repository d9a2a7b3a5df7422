// Package logging provides structured logging for ACE Core.
//
// It wraps log/slog so every component logs with the same handler,
// level filtering and default fields (service, version).
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	cacheLog := logger.With("component", "cache")
//	cacheLog.Info("slot updated", "slot", 2)
package logging
