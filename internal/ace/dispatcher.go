package ace

import (
	"context"
	"fmt"

	"github.com/nerrad567/ace-core/internal/gcode"
)

// Sender hands a script to the command channel. It must not wait for the
// device to answer.
type Sender interface {
	Send(ctx context.Context, script string) error
}

// SlotConfig is the caller's intent for one slot.
type SlotConfig struct {
	Material   string `json:"material"`
	Color      Color  `json:"color"`
	TargetTemp int    `json:"temp"`
}

// Dispatcher validates caller intent, applies it optimistically to the
// cache and sends the matching commands. It never waits for confirmation:
// the device's answer arrives later through the classifier, and the poller
// corrects any optimistic value the device did not adopt.
type Dispatcher struct {
	cache  *Cache
	sender Sender
	logger Logger

	dryerDuration int
}

// NewDispatcher creates a dispatcher writing to cache and sending on sender.
func NewDispatcher(cache *Cache, sender Sender) *Dispatcher {
	return &Dispatcher{
		cache:         cache,
		sender:        sender,
		logger:        noopLogger{},
		dryerDuration: DefaultDryerDuration,
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetDefaultDryerDuration changes the duration StartDryer uses when the
// caller passes none. Non-positive values are ignored.
func (d *Dispatcher) SetDefaultDryerDuration(minutes int) {
	if minutes > 0 {
		d.dryerDuration = minutes
	}
}

// Load feeds filament from slot. The slot must hold a spool.
func (d *Dispatcher) Load(ctx context.Context, slot int) error {
	_, changed, err := d.cache.Update(SourceOptimistic, func(s *DeviceState) error {
		if !ValidSlotIndex(slot) {
			return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
		}
		if s.Slots[slot].Occupancy != OccupancyReady {
			return fmt.Errorf("%w: slot %d", ErrSlotEmpty, slot)
		}
		s.LoadedSlot = slot
		s.LastUpdateSource = SourceOptimistic
		return nil
	})
	if err != nil {
		return err
	}
	d.logger.Info("loading slot", "slot", slot, "changed", changed)
	return d.send(ctx, gcode.ChangeTool(slot))
}

// Unload retracts the loaded filament. It does nothing when no slot is
// loaded.
func (d *Dispatcher) Unload(ctx context.Context) error {
	if d.cache.Read().LoadedSlot == NoSlot {
		return nil
	}
	_, changed, _ := d.cache.Update(SourceOptimistic, func(s *DeviceState) error {
		s.LoadedSlot = NoSlot
		s.LastUpdateSource = SourceOptimistic
		return nil
	})
	if !changed {
		return nil
	}
	d.logger.Info("unloading")
	return d.send(ctx, gcode.ChangeTool(NoSlot))
}

// ConfigureSlot writes material, color and temperature for slot and marks
// it ready, then re-queries the inventory.
func (d *Dispatcher) ConfigureSlot(ctx context.Context, slot int, cfg SlotConfig) error {
	material, err := validateSlotConfig(slot, cfg)
	if err != nil {
		return err
	}

	d.cache.Update(SourceOptimistic, func(s *DeviceState) error { //nolint:errcheck // fn never fails
		s.Slots[slot] = SlotRecord{
			Material:   material,
			Color:      cfg.Color,
			TargetTemp: cfg.TargetTemp,
			Occupancy:  OccupancyReady,
		}
		return nil
	})
	d.logger.Info("configuring slot", "slot", slot, "material", material, "temp", cfg.TargetTemp)

	return d.send(ctx,
		gcode.SetSlot(slot, cfg.Color, string(material), cfg.TargetTemp),
		gcode.QuerySlots(),
	)
}

func validateSlotConfig(slot int, cfg SlotConfig) (Material, error) {
	if !ValidSlotIndex(slot) {
		return "", fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	material, ok := ParseMaterial(cfg.Material)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMaterial, cfg.Material)
	}
	if !cfg.Color.Valid() {
		return "", fmt.Errorf("%w: %v", ErrInvalidColor, cfg.Color)
	}
	if !ValidSlotTemp(cfg.TargetTemp) {
		return "", fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidTemperature, cfg.TargetTemp, MinSlotTemp, MaxSlotTemp)
	}
	return material, nil
}

// MarkEmpty resets slot to the default empty record.
func (d *Dispatcher) MarkEmpty(ctx context.Context, slot int) error {
	if !ValidSlotIndex(slot) {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	d.cache.Update(SourceOptimistic, func(s *DeviceState) error { //nolint:errcheck // fn never fails
		s.Slots[slot] = DefaultSlot()
		return nil
	})
	d.logger.Info("marking slot empty", "slot", slot)
	return d.send(ctx, gcode.SetSlotEmpty(slot), gcode.QuerySlots())
}

// SetEndlessSpool turns endless spool mode on or off.
func (d *Dispatcher) SetEndlessSpool(ctx context.Context, enabled bool) error {
	d.cache.ApplyEndlessSpool(enabled, SourceOptimistic)
	d.logger.Info("setting endless spool", "enabled", enabled)

	cmd := gcode.DisableEndlessSpool()
	if enabled {
		cmd = gcode.EnableEndlessSpool()
	}
	return d.send(ctx, cmd, gcode.EndlessSpoolStatus())
}

// StartDryer starts drying at temp °C for duration minutes. A zero duration
// uses the configured default.
func (d *Dispatcher) StartDryer(ctx context.Context, temp, duration int) error {
	if temp < MinDryerTemp || temp > MaxDryerTemp {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidDryerTemp, temp, MinDryerTemp, MaxDryerTemp)
	}
	if duration == 0 {
		duration = d.dryerDuration
	}
	if duration < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, duration)
	}

	d.cache.Update(SourceOptimistic, func(s *DeviceState) error { //nolint:errcheck // fn never fails
		s.Dryer = DryerState{
			Enabled:    true,
			TargetTemp: temp,
			Duration:   duration,
			RemainTime: duration,
			Status:     DryerStatusDrying,
		}
		return nil
	})
	d.logger.Info("starting dryer", "temp", temp, "duration", duration)
	return d.send(ctx, gcode.StartDrying(temp, duration))
}

// StopDryer stops the dryer. It does nothing when the dryer is not running.
func (d *Dispatcher) StopDryer(ctx context.Context) error {
	_, changed, _ := d.cache.Update(SourceOptimistic, func(s *DeviceState) error {
		if !s.Dryer.Enabled {
			return nil
		}
		s.Dryer.Enabled = false
		s.Dryer.RemainTime = 0
		s.Dryer.Status = "stop"
		return nil
	})
	if !changed {
		return nil
	}
	d.logger.Info("stopping dryer")
	return d.send(ctx, gcode.StopDrying())
}

// Refresh asks the device for its inventory, loaded index and endless
// spool mode.
func (d *Dispatcher) Refresh(ctx context.Context) error {
	return d.send(ctx,
		gcode.QuerySlots(),
		gcode.GetCurrentIndex(),
		gcode.EndlessSpoolStatus(),
	)
}

// send hands each command to the channel in order and stops at the first
// failure.
func (d *Dispatcher) send(ctx context.Context, cmds ...gcode.Command) error {
	for _, cmd := range cmds {
		script := cmd.String()
		if err := d.sender.Send(ctx, script); err != nil {
			d.logger.Error("command send failed", "script", script, "error", err)
			return fmt.Errorf("%w: %s: %w", ErrSendFailed, script, err)
		}
	}
	return nil
}
