package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurements written by acecore.
const (
	// MeasurementDevice holds device-wide values (temperature, dryer, loaded slot).
	MeasurementDevice = "ace_device"

	// MeasurementSlot holds per-slot values, tagged by slot index.
	MeasurementSlot = "ace_slot"

	// MeasurementChange marks each committed state change, tagged by source.
	MeasurementChange = "ace_change"
)

// WriteDeviceMetric writes a single device-wide measurement.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - device: Device name from config (device.name)
//   - metric: The metric name (e.g., "temperature_c", "dryer_remaining_min")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteDeviceMetric("ace", "temperature_c", 31.5)
func (c *Client) WriteDeviceMetric(device, metric string, value float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(devicePoint(device, metric, value, time.Now()))
}

// WriteSlotMetric writes the fields of one slot.
//
// Parameters:
//   - device: Device name from config
//   - slot: Slot index (0-3)
//   - fields: Values to record (e.g., "target_temp_c", "ready")
func (c *Client) WriteSlotMetric(device string, slot int, fields map[string]interface{}) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}
	c.writeAPI.WritePoint(slotPoint(device, slot, fields, time.Now()))
}

// WriteStateChange records one committed state change at the time the
// cache committed it.
//
// Parameters:
//   - device: Device name from config
//   - source: Who made the change (device, persisted, optimistic)
//   - version: State version after the change
//   - ts: Commit time
func (c *Client) WriteStateChange(device, source string, version uint64, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementChange,
		map[string]string{
			"device": device,
			"source": source,
		},
		map[string]interface{}{
			"version": int64(version),
		},
		ts,
	))
}

func devicePoint(device, metric string, value float64, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementDevice,
		map[string]string{
			"device": device,
			"metric": metric,
		},
		map[string]interface{}{
			"value": value,
		},
		ts,
	)
}

func slotPoint(device string, slot int, fields map[string]interface{}, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementSlot,
		map[string]string{
			"device": device,
			"slot":   strconv.Itoa(slot),
		},
		fields,
		ts,
	)
}
