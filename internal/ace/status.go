package ace

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DryerStatusDrying is the dryer status the device reports while heating.
const DryerStatusDrying = "drying"

// StatusDryer is the dryer block of a status report.
type StatusDryer struct {
	Status     string  `json:"status"`
	TargetTemp float64 `json:"target_temp"`
	Duration   float64 `json:"duration"`
	RemainTime float64 `json:"remain_time"`
}

// StatusSlot is one slot as the device status report describes it.
type StatusSlot struct {
	Index  int    `json:"index"`
	Status string `json:"status"`
	Type   string `json:"type"`
	Color  []int  `json:"color"`
	SKU    string `json:"sku"`
	RFID   int    `json:"rfid"`

	// HasIndex is false when the report left the index out. The slot is
	// then taken from its position in the list.
	HasIndex bool `json:"-"`
}

// StatusReport is the device status the firmware publishes.
type StatusReport struct {
	Status     string       `json:"status"`
	Dryer      StatusDryer  `json:"dryer"`
	Temp       float64      `json:"temp"`
	FanSpeed   float64      `json:"fan_speed"`
	EnableRFID int          `json:"enable_rfid"`
	Model      string       `json:"model,omitempty"`
	Firmware   string       `json:"firmware,omitempty"`
	Slots      []StatusSlot `json:"slots,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}

// ParseStatus decodes a JSON status report.
func ParseStatus(payload []byte) (StatusReport, error) {
	var r StatusReport
	if err := json.Unmarshal(payload, &r); err != nil {
		return StatusReport{}, fmt.Errorf("%w: %w", ErrInvalidStatus, err)
	}
	return r, nil
}

// UnmarshalJSON records whether the index field was present.
func (s *StatusSlot) UnmarshalJSON(data []byte) error {
	type plain StatusSlot
	var raw struct {
		plain
		Index *int `json:"index"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = StatusSlot(raw.plain)
	if raw.Index != nil {
		s.Index, s.HasIndex = *raw.Index, true
	}
	return nil
}

func (r StatusReport) clone() StatusReport {
	c := r
	if r.Slots != nil {
		c.Slots = make([]StatusSlot, len(r.Slots))
		for i, s := range r.Slots {
			c.Slots[i] = s
			if s.Color != nil {
				c.Slots[i].Color = append([]int(nil), s.Color...)
			}
		}
	}
	return c
}

// dryerState converts the report's dryer block.
func (r StatusReport) dryerState() DryerState {
	return DryerState{
		Enabled:    r.Dryer.Status == DryerStatusDrying,
		TargetTemp: int(math.Round(r.Dryer.TargetTemp)),
		Duration:   int(math.Round(r.Dryer.Duration)),
		RemainTime: int(math.Round(r.Dryer.RemainTime)),
		Status:     r.Dryer.Status,
	}
}

// inventoryEntries converts the report's slots so they merge like an
// inventory dump. Slots whose status is neither ready nor empty are left out.
func (r StatusReport) inventoryEntries() []InventoryEntry {
	entries := make([]InventoryEntry, 0, len(r.Slots))
	for pos, s := range r.Slots {
		if !knownOccupancy(s.Status) {
			continue
		}
		e := InventoryEntry{
			Position: pos,
			Index:    s.Index,
			HasIndex: s.HasIndex,
			Status:   s.Status,
			Material: s.Type,
		}
		if s.Color != nil {
			e.HasColor = true
			if c, err := ParseColor(s.Color); err == nil {
				e.Color, e.ColorOK = c, true
			}
		}
		entries = append(entries, e)
	}
	return entries
}
