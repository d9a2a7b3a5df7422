// Package gcode carries commands to the filament changer firmware and
// delivers the text it prints back.
//
// The firmware link is fire-and-forget: Send returns as soon as the script
// has been handed to the transport, and responses arrive later, in any
// order, through the LineHandler given to Start. Two transports exist:
//
//   - MQTTChannel publishes scripts to a broker topic that a firmware bridge
//     (for example a Moonraker agent) executes, and subscribes to the bridge's
//     response topic.
//   - SerialChannel writes scripts directly to a serial port and reads the
//     port line by line.
package gcode

import (
	"context"
	"errors"
	"strings"
)

// Errors returned by channels.
var (
	// ErrNotConnected is returned when the underlying transport is down.
	ErrNotConnected = errors.New("gcode: transport not connected")

	// ErrEmptyScript is returned when Send is called with a blank script.
	ErrEmptyScript = errors.New("gcode: empty script")

	// ErrClosed is returned when sending on a closed channel.
	ErrClosed = errors.New("gcode: channel closed")
)

// LineHandler receives one response line from the firmware.
// It is called from the transport's goroutine and must not block.
type LineHandler func(line string)

// Logger is the logging interface used by channels.
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

// Channel is a command link to the firmware.
type Channel interface {
	Send(ctx context.Context, script string) error
	Start(ctx context.Context, handler LineHandler) error
}

// splitLines breaks a response payload into trimmed, non-empty lines.
func splitLines(payload string) []string {
	raw := strings.Split(strings.ReplaceAll(payload, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func checkScript(script string) (string, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return "", ErrEmptyScript
	}
	return script, nil
}
