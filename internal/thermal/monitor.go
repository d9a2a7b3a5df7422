// Package thermal guards the printer against a filament changer that is too
// hot or reports an implausibly low temperature.
//
// The monitor samples the temperature from the last device status report.
// The first sample outside the limits is fatal: the monitor logs it, sends
// an emergency stop to the printer controller and returns an error from Run,
// which stops the process.
package thermal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nerrad567/ace-core/internal/ace"
	"github.com/nerrad567/ace-core/internal/gcode"
)

// Defaults for the guard.
const (
	DefaultMinTemp        = 0.0
	DefaultMaxTemp        = 70.0
	DefaultSampleInterval = time.Second

	// initialMeasuredMin is reported as the measured minimum until a
	// positive sample arrives.
	initialMeasuredMin = 99999999.0
)

var (
	// ErrBelowMinimum is returned by Run when a positive sample is below
	// the minimum temperature.
	ErrBelowMinimum = errors.New("thermal: temperature below minimum")

	// ErrAboveMaximum is returned by Run when a sample exceeds the maximum
	// temperature.
	ErrAboveMaximum = errors.New("thermal: temperature above maximum")

	// ErrInvalidLimits is returned by NewMonitor when min is not below max.
	ErrInvalidLimits = errors.New("thermal: min_temp must be below max_temp")
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StateReader provides the latest device state.
type StateReader interface {
	Read() ace.DeviceState
}

// Sender delivers the emergency stop.
type Sender interface {
	Send(ctx context.Context, script string) error
}

// Status is the sensor view exposed over the API.
type Status struct {
	Temperature     float64 `json:"temperature"`
	MeasuredMinTemp float64 `json:"measured_min_temp"`
	MeasuredMaxTemp float64 `json:"measured_max_temp"`
}

// Monitor samples the device temperature and enforces the limits.
//
// Thread Safety: Status may be called concurrently with Run.
type Monitor struct {
	reader   StateReader
	sender   Sender
	min, max float64
	interval time.Duration
	logger   Logger

	mu          sync.Mutex
	temp        float64
	measuredMin float64
	measuredMax float64
	sampled     bool
}

// NewMonitor creates a monitor.
//
// Parameters:
//   - reader: Source of device state, usually the ace.Cache
//   - sender: Command channel used for the emergency stop (may be nil)
//   - minTemp, maxTemp: Limits in °C; min must be below max
//   - interval: Sample period; zero or negative uses DefaultSampleInterval
//
// Returns:
//   - *Monitor: Ready to Run
//   - error: ErrInvalidLimits if minTemp >= maxTemp
func NewMonitor(reader StateReader, sender Sender, minTemp, maxTemp float64, interval time.Duration) (*Monitor, error) {
	if minTemp >= maxTemp {
		return nil, fmt.Errorf("%w: %.1f >= %.1f", ErrInvalidLimits, minTemp, maxTemp)
	}
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Monitor{
		reader:      reader,
		sender:      sender,
		min:         minTemp,
		max:         maxTemp,
		interval:    interval,
		logger:      noopLogger{},
		measuredMin: initialMeasuredMin,
	}, nil
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	m.logger = logger
}

// Run samples until ctx is cancelled (returns nil) or a limit is crossed
// (returns ErrBelowMinimum or ErrAboveMaximum after the emergency stop).
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if err := m.Sample(); err != nil {
			m.shutdown(ctx, err)
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sample takes one reading and checks it against the limits.
func (m *Monitor) Sample() error {
	var temp float64
	if st := m.reader.Read().Status; st != nil {
		temp = st.Temp
	}

	m.mu.Lock()
	m.temp = temp
	first := false
	if temp > 0 {
		first = !m.sampled
		m.sampled = true
		m.measuredMin = math.Min(m.measuredMin, temp)
		m.measuredMax = math.Max(m.measuredMax, temp)
	}
	m.mu.Unlock()

	if first {
		m.logger.Info("thermal sampling started", "temp", temp)
	}

	if temp < m.min && temp > 0 {
		return fmt.Errorf("%w: %.1f below minimum temperature of %.1f", ErrBelowMinimum, temp, m.min)
	}
	if temp > m.max {
		return fmt.Errorf("%w: %.1f above maximum temperature of %.1f", ErrAboveMaximum, temp, m.max)
	}
	return nil
}

// Status returns the current and measured temperatures rounded to two
// decimals.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Temperature:     round2(m.temp),
		MeasuredMinTemp: round2(m.measuredMin),
		MeasuredMaxTemp: round2(m.measuredMax),
	}
}

func (m *Monitor) shutdown(ctx context.Context, cause error) {
	m.logger.Error("thermal limit exceeded, stopping printer", "error", cause)
	if m.sender == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.sender.Send(sendCtx, gcode.EmergencyStop().String()); err != nil {
		m.logger.Error("emergency stop failed", "error", err)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
