package thermal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/ace-core/internal/ace"
)

type fixedReader struct {
	mu    sync.Mutex
	temps []float64
	next  int
}

// Read returns each configured temperature in turn, repeating the last.
func (r *fixedReader) Read() ace.DeviceState {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := ace.NewDeviceState()
	if len(r.temps) == 0 {
		return s
	}
	i := r.next
	if i >= len(r.temps) {
		i = len(r.temps) - 1
	} else {
		r.next++
	}
	s.Status = &ace.StatusReport{Temp: r.temps[i]}
	return s
}

type recordingSender struct {
	mu      sync.Mutex
	scripts []string
}

func (s *recordingSender) Send(_ context.Context, script string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, script)
	return nil
}

func newTestMonitor(t *testing.T, temps ...float64) (*Monitor, *recordingSender) {
	t.Helper()
	sender := &recordingSender{}
	m, err := NewMonitor(&fixedReader{temps: temps}, sender, DefaultMinTemp, DefaultMaxTemp, time.Millisecond)
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	return m, sender
}

func TestNewMonitor_InvalidLimits(t *testing.T) {
	if _, err := NewMonitor(&fixedReader{}, nil, 70, 70, 0); !errors.Is(err, ErrInvalidLimits) {
		t.Errorf("NewMonitor() error = %v, want ErrInvalidLimits", err)
	}
}

func TestSample_Limits(t *testing.T) {
	tests := []struct {
		name    string
		min     float64
		temp    float64
		wantErr error
	}{
		{"no status", 0, 0, nil},
		{"normal", 0, 35, nil},
		{"at max", 0, 70, nil},
		{"above max", 0, 70.1, ErrAboveMaximum},
		{"below min", 10, 5, ErrBelowMinimum},
		{"zero ignored by min", 10, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fixedReader{}
			if tt.name != "no status" {
				reader.temps = []float64{tt.temp}
			}
			m, err := NewMonitor(reader, nil, tt.min, DefaultMaxTemp, 0)
			if err != nil {
				t.Fatalf("NewMonitor() error = %v", err)
			}

			err = m.Sample()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Sample() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatus_TracksPositiveSamples(t *testing.T) {
	m, _ := newTestMonitor(t, 30.123, 0, 42.456, 25)

	for i := 0; i < 4; i++ {
		if err := m.Sample(); err != nil {
			t.Fatalf("Sample() error = %v", err)
		}
	}

	want := Status{Temperature: 25, MeasuredMinTemp: 25, MeasuredMaxTemp: 42.46}
	if got := m.Status(); got != want {
		t.Errorf("Status() = %+v, want %+v", got, want)
	}
}

func TestStatus_BeforeFirstSample(t *testing.T) {
	m, _ := newTestMonitor(t)

	got := m.Status()
	if got.MeasuredMinTemp != initialMeasuredMin || got.MeasuredMaxTemp != 0 {
		t.Errorf("Status() = %+v, want untouched min/max", got)
	}
}

func TestRun_FaultSendsEmergencyStop(t *testing.T) {
	m, sender := newTestMonitor(t, 40, 41, 80)

	err := m.Run(context.Background())
	if !errors.Is(err, ErrAboveMaximum) {
		t.Fatalf("Run() error = %v, want ErrAboveMaximum", err)
	}

	if len(sender.scripts) != 1 || sender.scripts[0] != "M112" {
		t.Errorf("sent = %v, want [M112]", sender.scripts)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	m, sender := newTestMonitor(t, 40)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if len(sender.scripts) != 0 {
		t.Errorf("sent = %v, want nothing", sender.scripts)
	}
}
