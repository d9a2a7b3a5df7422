package ace

import (
	"strings"
	"time"
)

// Physical limits and defaults.
const (
	// SlotCount is the number of filament slots on the device.
	SlotCount = 4

	// NoSlot is the loaded index when nothing is loaded.
	NoSlot = -1

	MinSlotTemp = 0
	MaxSlotTemp = 300

	MinDryerTemp = 35
	MaxDryerTemp = 55

	// DefaultDryerDuration is the drying time in minutes when none is given.
	DefaultDryerDuration = 240

	defaultSlotTemp = 200
)

// Material is a filament type.
type Material string

// Known materials.
const (
	MaterialPLA   Material = "PLA"
	MaterialABS   Material = "ABS"
	MaterialPETG  Material = "PETG"
	MaterialTPU   Material = "TPU"
	MaterialASA   Material = "ASA"
	MaterialPVA   Material = "PVA"
	MaterialHIPS  Material = "HIPS"
	MaterialPC    Material = "PC"
	MaterialOther Material = "OTHER"
)

// Materials lists every accepted material in display order.
var Materials = []Material{
	MaterialPLA, MaterialABS, MaterialPETG, MaterialTPU, MaterialASA,
	MaterialPVA, MaterialHIPS, MaterialPC, MaterialOther,
}

// ParseMaterial matches s case-insensitively against the known materials.
func ParseMaterial(s string) (Material, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, m := range Materials {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// materialFromDevice maps whatever the device reports onto the known set.
// Unknown names become OTHER.
func materialFromDevice(s string) Material {
	if m, ok := ParseMaterial(s); ok {
		return m
	}
	return MaterialOther
}

// Occupancy is whether a slot holds a spool.
type Occupancy string

// Occupancy values.
const (
	OccupancyEmpty Occupancy = "empty"
	OccupancyReady Occupancy = "ready"
)

// Source identifies which channel wrote a value. Diagnostic only: it never
// gates whether a write is accepted.
type Source string

// Update sources.
const (
	SourcePersisted  Source = "persisted"
	SourceDevice     Source = "device"
	SourceOptimistic Source = "optimistic"
)

// Color is an RGB triple.
type Color [3]int

// White is the default slot color.
var White = Color{255, 255, 255}

// Valid reports whether every component is in [0,255].
func (c Color) Valid() bool {
	for _, v := range c {
		if v < 0 || v > 255 {
			return false
		}
	}
	return true
}

// SlotRecord is one physical slot.
type SlotRecord struct {
	Material   Material  `json:"material"`
	Color      Color     `json:"color"`
	TargetTemp int       `json:"temp"`
	Occupancy  Occupancy `json:"status"`

	// Loaded is derived from DeviceState.LoadedSlot.
	Loaded bool `json:"loaded"`
}

// DefaultSlot returns the record a slot has before anything is known about
// it, and after it is marked empty.
func DefaultSlot() SlotRecord {
	return SlotRecord{
		Material:   MaterialPLA,
		Color:      White,
		TargetTemp: defaultSlotTemp,
		Occupancy:  OccupancyEmpty,
	}
}

// ValidSlotIndex reports whether i addresses a physical slot.
func ValidSlotIndex(i int) bool {
	return i >= 0 && i < SlotCount
}

// ValidLoadedIndex reports whether i is a legal loaded index (-1..3).
func ValidLoadedIndex(i int) bool {
	return i == NoSlot || ValidSlotIndex(i)
}

// ValidSlotTemp reports whether t is an acceptable printing temperature.
func ValidSlotTemp(t int) bool {
	return t >= MinSlotTemp && t <= MaxSlotTemp
}

// DryerState is the dryer as last commanded or reported.
type DryerState struct {
	Enabled    bool   `json:"enabled"`
	TargetTemp int    `json:"target_temp"`
	Duration   int    `json:"duration"`
	RemainTime int    `json:"remain_time"`
	Status     string `json:"status,omitempty"`
}

// DeviceState is the reconciled view of the device.
type DeviceState struct {
	LoadedSlot       int                   `json:"loaded_slot"`
	Slots            [SlotCount]SlotRecord `json:"slots"`
	Dryer            DryerState            `json:"dryer"`
	EndlessSpool     bool                  `json:"endless_spool"`
	LastUpdateSource Source                `json:"last_update_source,omitempty"`

	// Status is the last device status report, nil until one arrives.
	Status *StatusReport `json:"device_status,omitempty"`

	FilamentPos string `json:"filament_pos,omitempty"`

	// Version increments on every change.
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDeviceState returns the state at cache initialisation.
func NewDeviceState() DeviceState {
	s := DeviceState{LoadedSlot: NoSlot}
	for i := range s.Slots {
		s.Slots[i] = DefaultSlot()
	}
	return s
}

// DeepCopy returns a copy sharing no memory with s.
func (s DeviceState) DeepCopy() DeviceState {
	c := s
	if s.Status != nil {
		st := s.Status.clone()
		c.Status = &st
	}
	return c
}

// syncLoadedFlags makes Slots[i].Loaded agree with LoadedSlot.
func (s *DeviceState) syncLoadedFlags() {
	for i := range s.Slots {
		s.Slots[i].Loaded = i == s.LoadedSlot
	}
}
