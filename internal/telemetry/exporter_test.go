package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/ace-core/internal/ace"
)

type fakeWriter struct {
	mu     sync.Mutex
	device map[string]float64
	slots   map[int]map[string]interface{}
	changes []change
	tags    []string
}

type change struct {
	Source  string
	Version uint64
	At      time.Time
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		device: make(map[string]float64),
		slots:  make(map[int]map[string]interface{}),
	}
}

func (f *fakeWriter) WriteDeviceMetric(device, metric string, value float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.device[metric] = value
	f.tags = append(f.tags, device)
}

func (f *fakeWriter) WriteSlotMetric(device string, slot int, fields map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots[slot] = fields
	f.tags = append(f.tags, device)
}

func (f *fakeWriter) WriteStateChange(device, source string, version uint64, ts time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, change{source, version, ts})
	f.tags = append(f.tags, device)
}

func TestExporter_StateChanges(t *testing.T) {
	w := newFakeWriter()
	cache := ace.NewCache()
	cache.Subscribe(NewExporter(w, "ace").Observe)

	cache.ApplyIndex(1, ace.SourceOptimistic)
	cache.ApplyIndex(1, ace.SourceDevice)
	cache.ApplyEndlessSpool(true, ace.SourceDevice)

	if len(w.changes) != 2 {
		t.Fatalf("changes = %+v, want 2", w.changes)
	}
	if w.changes[0].Source != string(ace.SourceOptimistic) || w.changes[0].Version != 1 {
		t.Errorf("changes[0] = %+v", w.changes[0])
	}
	if w.changes[1].Source != string(ace.SourceDevice) || w.changes[1].Version != 2 {
		t.Errorf("changes[1] = %+v", w.changes[1])
	}
	if got := w.changes[1].At; !got.Equal(cache.Read().UpdatedAt) {
		t.Errorf("change time = %v, want the commit time %v", got, cache.Read().UpdatedAt)
	}
}

func TestExporter_DeviceMetrics(t *testing.T) {
	w := newFakeWriter()
	cache := ace.NewCache()
	cache.Subscribe(NewExporter(w, "ace-1").Observe)

	cache.ApplyIndex(2, ace.SourceDevice)
	cache.ApplyEndlessSpool(true, ace.SourceDevice)

	want := map[string]float64{
		MetricLoadedSlot:     2,
		MetricEndlessSpool:   1,
		MetricDryerEnabled:   0,
		MetricDryerTarget:    0,
		MetricDryerRemaining: 0,
	}
	if diff := cmp.Diff(want, w.device); diff != "" {
		t.Errorf("device metrics mismatch (-want +got):\n%s", diff)
	}

	for _, tag := range w.tags {
		if tag != "ace-1" {
			t.Fatalf("device tag = %q, want ace-1", tag)
		}
	}
}

func TestExporter_StatusMetrics(t *testing.T) {
	w := newFakeWriter()
	cache := ace.NewCache()
	cache.Subscribe(NewExporter(w, "ace").Observe)

	err := cache.ApplyStatusJSON([]byte(`{"status":"ready","temp":31.5,"fan_speed":7000,
		"dryer":{"status":"drying","target_temp":45,"duration":240,"remain_time":120}}`))
	if err != nil {
		t.Fatalf("ApplyStatusJSON() error = %v", err)
	}

	if got := w.device[MetricTemperature]; got != 31.5 {
		t.Errorf("temperature = %v, want 31.5", got)
	}
	if got := w.device[MetricFanSpeed]; got != 7000 {
		t.Errorf("fan speed = %v, want 7000", got)
	}
	if got := w.device[MetricDryerTarget]; got != 45 {
		t.Errorf("dryer target = %v, want 45", got)
	}
	if got := w.device[MetricDryerRemaining]; got != 120 {
		t.Errorf("dryer remaining = %v, want 120", got)
	}
}

func TestExporter_SlotMetrics(t *testing.T) {
	w := newFakeWriter()
	state := ace.NewDeviceState()
	state.LoadedSlot = 1
	state.Slots[1] = ace.SlotRecord{
		Material:   ace.MaterialPETG,
		Color:      ace.Color{0, 0, 255},
		TargetTemp: 240,
		Occupancy:  ace.OccupancyReady,
		Loaded:     true,
	}

	NewExporter(w, "ace").Observe(state, ace.SourceOptimistic)

	if len(w.slots) != ace.SlotCount {
		t.Fatalf("slot points = %d, want %d", len(w.slots), ace.SlotCount)
	}
	want := map[string]interface{}{
		"target_temp_c": 240,
		"ready":         true,
		"loaded":        true,
		"material":      "PETG",
	}
	if diff := cmp.Diff(want, w.slots[1]); diff != "" {
		t.Errorf("slot 1 fields mismatch (-want +got):\n%s", diff)
	}
	if w.slots[0]["ready"] != false {
		t.Errorf("slot 0 ready = %v, want false", w.slots[0]["ready"])
	}
}
