package gcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Serial defaults.
const (
	DefaultBaudRate        = 115200
	DefaultReadTimeout     = 500 * time.Millisecond
	maxPendingLineBytes    = 64 * 1024
	serialReadBufferLength = 256
)

// port is the subset of serial.Port the channel uses.
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// SerialConfig configures a SerialChannel.
type SerialConfig struct {
	Device      string
	BaudRate    int
	ReadTimeout time.Duration
}

// SerialChannel talks to the firmware over a serial port.
//
// Writes are serialised with a mutex. Reads happen in a single goroutine
// started by Start, which splits the byte stream into lines.
type SerialChannel struct {
	port        port
	device      string
	readTimeout time.Duration

	writeMu sync.Mutex
	closed  bool

	logger Logger
	mu     sync.RWMutex
	done   chan struct{}
}

// OpenSerial opens the configured serial device.
func OpenSerial(cfg SerialConfig) (*SerialChannel, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("gcode: serial device is required")
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	p, err := serial.Open(cfg.Device, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", cfg.Device, err)
	}
	return newSerialChannel(p, cfg.Device, cfg.ReadTimeout), nil
}

func newSerialChannel(p port, device string, readTimeout time.Duration) *SerialChannel {
	return &SerialChannel{
		port:        p,
		device:      device,
		readTimeout: readTimeout,
		logger:      noopLogger{},
		done:        make(chan struct{}),
	}
}

// SetLogger sets the logger for the channel.
func (c *SerialChannel) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *SerialChannel) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// Send writes script followed by a newline.
func (c *SerialChannel) Send(ctx context.Context, script string) error {
	script, err := checkScript(script)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, err := io.WriteString(c.port, script+"\n"); err != nil {
		return fmt.Errorf("writing to %s: %w", c.device, err)
	}
	c.log().Debug("gcode sent", "device", c.device, "script", script)
	return nil
}

// Start launches the read loop. It stops when ctx is cancelled or the port
// is closed.
func (c *SerialChannel) Start(ctx context.Context, handler LineHandler) error {
	if handler == nil {
		return fmt.Errorf("gcode: nil line handler")
	}
	if err := c.port.SetReadTimeout(c.readTimeout); err != nil {
		return fmt.Errorf("setting read timeout: %w", err)
	}
	go c.readLoop(ctx, handler)
	return nil
}

// Done is closed when the read loop exits.
func (c *SerialChannel) Done() <-chan struct{} {
	return c.done
}

func (c *SerialChannel) readLoop(ctx context.Context, handler LineHandler) {
	defer close(c.done)

	buf := make([]byte, serialReadBufferLength)
	var pending strings.Builder

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := c.port.Read(buf)
		if n > 0 {
			c.consume(buf[:n], &pending, handler)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || c.isClosed() {
				return
			}
			c.log().Error("serial read failed", "device", c.device, "error", err)
			return
		}
	}
}

// consume appends data to pending and emits every completed line.
func (c *SerialChannel) consume(data []byte, pending *strings.Builder, handler LineHandler) {
	for _, b := range data {
		if b == '\n' {
			if line := strings.TrimSpace(pending.String()); line != "" {
				handler(line)
			}
			pending.Reset()
			continue
		}
		if pending.Len() >= maxPendingLineBytes {
			c.log().Warn("serial line too long, discarding", "device", c.device)
			pending.Reset()
		}
		pending.WriteByte(b)
	}
}

func (c *SerialChannel) isClosed() bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.closed
}

// Close closes the port. The read loop exits on its next read.
func (c *SerialChannel) Close() error {
	c.writeMu.Lock()
	if c.closed {
		c.writeMu.Unlock()
		return nil
	}
	c.closed = true
	c.writeMu.Unlock()
	return c.port.Close()
}
