// Package telemetry turns device state changes into time-series points.
//
// The exporter is registered as a cache observer. Every committed change
// writes the device-wide values and one point per slot. Writes go through a
// PointWriter, which in production is the batched, non-blocking InfluxDB
// client.
package telemetry

import (
	"time"

	"github.com/nerrad567/ace-core/internal/ace"
)

// Device-wide metric names.
const (
	MetricTemperature    = "temperature_c"
	MetricFanSpeed       = "fan_speed"
	MetricLoadedSlot     = "loaded_slot"
	MetricEndlessSpool   = "endless_spool"
	MetricDryerEnabled   = "dryer_enabled"
	MetricDryerTarget    = "dryer_target_c"
	MetricDryerRemaining = "dryer_remaining_min"
)

// PointWriter accepts metric points. Implementations must not block.
type PointWriter interface {
	WriteDeviceMetric(device, metric string, value float64)
	WriteSlotMetric(device string, slot int, fields map[string]interface{})
	WriteStateChange(device, source string, version uint64, ts time.Time)
}

// Exporter writes state snapshots to a PointWriter.
type Exporter struct {
	writer PointWriter
	device string
}

// NewExporter creates an exporter that tags every point with device.
func NewExporter(writer PointWriter, device string) *Exporter {
	return &Exporter{writer: writer, device: device}
}

// Observe satisfies ace.Observer.
func (e *Exporter) Observe(state ace.DeviceState, source ace.Source) {
	w := e.writer

	w.WriteStateChange(e.device, string(source), state.Version, state.UpdatedAt)

	w.WriteDeviceMetric(e.device, MetricLoadedSlot, float64(state.LoadedSlot))
	w.WriteDeviceMetric(e.device, MetricEndlessSpool, boolValue(state.EndlessSpool))
	w.WriteDeviceMetric(e.device, MetricDryerEnabled, boolValue(state.Dryer.Enabled))
	w.WriteDeviceMetric(e.device, MetricDryerTarget, float64(state.Dryer.TargetTemp))
	w.WriteDeviceMetric(e.device, MetricDryerRemaining, float64(state.Dryer.RemainTime))

	// Temperature and fan only exist once the device has reported status.
	if st := state.Status; st != nil {
		w.WriteDeviceMetric(e.device, MetricTemperature, st.Temp)
		w.WriteDeviceMetric(e.device, MetricFanSpeed, st.FanSpeed)
	}

	for i, s := range state.Slots {
		w.WriteSlotMetric(e.device, i, map[string]interface{}{
			"target_temp_c": s.TargetTemp,
			"ready":         s.Occupancy == ace.OccupancyReady,
			"loaded":        s.Loaded,
			"material":      string(s.Material),
		})
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
