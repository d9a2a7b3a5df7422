package ace

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) Refresh(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestPoller_RunsUntilCancelled(t *testing.T) {
	r := &countingRefresher{err: errors.New("offline")}
	p := NewPoller(r, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for r.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d polls before deadline", r.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestNewPoller_DefaultInterval(t *testing.T) {
	if got := NewPoller(&countingRefresher{}, 0).Interval(); got != DefaultPollInterval {
		t.Errorf("Interval() = %v, want %v", got, DefaultPollInterval)
	}
}

func TestListener_HandleLine(t *testing.T) {
	cache := NewCache()
	l := NewListener(cache)

	for _, line := range []string{
		`// [{"index": 0, "status": "ready", "material": "PLA", "color": [1, 2, 3], "temp": 210}]`,
		"// 0",
		"// - Currently enabled: True",
		"ACE: Drying started",
		"// [broken",
		"garbage",
	} {
		l.HandleLine(line)
	}

	s := cache.Read()
	if s.LoadedSlot != 0 || !s.Slots[0].Loaded {
		t.Errorf("LoadedSlot = %d", s.LoadedSlot)
	}
	if s.Slots[0].Color != (Color{1, 2, 3}) {
		t.Errorf("slot 0 color = %v", s.Slots[0].Color)
	}
	if !s.EndlessSpool {
		t.Error("EndlessSpool = false, want true")
	}
}
