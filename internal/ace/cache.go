package ace

import (
	"reflect"
	"sync"
	"time"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Observer is called after every change with the snapshot the change
// produced. Observers run while the cache lock is held, so they must not
// block and must not call back into the cache.
type Observer func(state DeviceState, source Source)

// PersistedState is what was read from the variable store. Nil fields were
// absent or undecodable.
type PersistedState struct {
	Index       *int
	Inventory   []InventoryEntry
	FilamentPos *string
}

// Cache is the in-memory source of truth for one device.
//
// Device responses, store notifications and dispatcher writes all go
// through Update. The last write to a field wins regardless of source.
//
// All public methods are thread-safe.
type Cache struct {
	mu        sync.Mutex
	state     DeviceState
	observers []Observer

	logger Logger
	now    func() time.Time
}

// NewCache creates a cache holding the default state: nothing loaded and
// four default empty slots.
func NewCache() *Cache {
	s := NewDeviceState()
	s.syncLoadedFlags()
	return &Cache{
		state:  s,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the cache.
func (c *Cache) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

// Subscribe registers an observer for state changes.
func (c *Cache) Subscribe(o Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()
}

// Read returns a snapshot of the current state.
func (c *Cache) Read() DeviceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.DeepCopy()
}

// Update applies fn to a working copy of the state. If fn returns an error
// nothing changes. Otherwise, when the copy differs from the current state,
// it is committed, Version is bumped and observers are notified.
//
// Returns the resulting snapshot and whether anything changed.
func (c *Cache) Update(source Source, fn func(*DeviceState) error) (DeviceState, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	work := c.state.DeepCopy()
	if err := fn(&work); err != nil {
		return c.state.DeepCopy(), false, err
	}
	work.syncLoadedFlags()

	if sameState(c.state, work) {
		return c.state.DeepCopy(), false, nil
	}

	work.Version = c.state.Version + 1
	work.UpdatedAt = c.now().UTC()
	c.state = work

	for _, o := range c.observers {
		o(work.DeepCopy(), source)
	}
	return work.DeepCopy(), true, nil
}

// Apply merges a classified response. Unrecognized lines and
// acknowledgements are ignored.
func (c *Cache) Apply(r Response, source Source) bool {
	switch r.Kind {
	case KindInventory:
		return c.ApplyInventory(r.Inventory, source)
	case KindIndex:
		return c.ApplyIndex(r.Index, source)
	case KindEndlessSpool:
		return c.ApplyEndlessSpool(r.EndlessSpool, source)
	default:
		return false
	}
}

// ApplyInventory merges slot entries. An empty list changes nothing, and
// slots not named in a non-empty list are left untouched.
func (c *Cache) ApplyInventory(entries []InventoryEntry, source Source) bool {
	if len(entries) == 0 {
		return false
	}
	_, changed, _ := c.Update(source, func(s *DeviceState) error {
		c.mergeInventory(s, entries, source)
		return nil
	})
	return changed
}

// ApplyIndex sets the loaded slot. Values outside -1..3 are rejected and an
// unchanged value is a no-op.
func (c *Cache) ApplyIndex(index int, source Source) bool {
	_, changed, _ := c.Update(source, func(s *DeviceState) error {
		c.mergeIndex(s, index, source)
		return nil
	})
	return changed
}

// ApplyEndlessSpool sets the endless spool flag.
func (c *Cache) ApplyEndlessSpool(enabled bool, source Source) bool {
	_, changed, _ := c.Update(source, func(s *DeviceState) error {
		s.EndlessSpool = enabled
		return nil
	})
	return changed
}

// ApplyPersisted merges values read from the variable store using the same
// rules as device responses.
func (c *Cache) ApplyPersisted(p PersistedState) bool {
	_, changed, _ := c.Update(SourcePersisted, func(s *DeviceState) error {
		if p.Index != nil {
			c.mergeIndex(s, *p.Index, SourcePersisted)
		}
		if len(p.Inventory) > 0 {
			c.mergeInventory(s, p.Inventory, SourcePersisted)
		}
		if p.FilamentPos != nil {
			s.FilamentPos = *p.FilamentPos
		}
		return nil
	})
	return changed
}

// ApplyStatus stores a device status report and takes the dryer state and
// slot occupancy from it.
func (c *Cache) ApplyStatus(r StatusReport) bool {
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = c.now().UTC()
	}
	_, changed, _ := c.Update(SourceDevice, func(s *DeviceState) error {
		st := r.clone()
		s.Status = &st
		s.Dryer = r.dryerState()
		if entries := r.inventoryEntries(); len(entries) > 0 {
			c.mergeInventory(s, entries, SourceDevice)
		}
		return nil
	})
	return changed
}

// ApplyStatusJSON decodes and applies a JSON status report.
func (c *Cache) ApplyStatusJSON(payload []byte) error {
	r, err := ParseStatus(payload)
	if err != nil {
		return err
	}
	c.ApplyStatus(r)
	return nil
}

func (c *Cache) mergeIndex(s *DeviceState, index int, source Source) {
	if !ValidLoadedIndex(index) {
		c.logger.Warn("loaded index out of range, keeping previous",
			"index", index, "previous", s.LoadedSlot, "source", source)
		return
	}
	if index == s.LoadedSlot {
		return
	}
	s.LoadedSlot = index
	s.LastUpdateSource = source
}

func (c *Cache) mergeInventory(s *DeviceState, entries []InventoryEntry, source Source) {
	for _, e := range entries {
		slot := e.Slot()
		if !ValidSlotIndex(slot) {
			c.logger.Debug("inventory entry outside slot range ignored", "slot", slot, "source", source)
			continue
		}
		rec, rejected := e.Record(s.Slots[slot])
		for _, field := range rejected {
			c.logger.Warn("inventory field rejected, keeping previous value",
				"slot", slot, "field", field, "source", source)
		}
		s.Slots[slot] = rec
	}
}

// sameState compares the data fields, ignoring bookkeeping. A status
// report that only differs in when it was received is the same report.
func sameState(a, b DeviceState) bool {
	a.Version, b.Version = 0, 0
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	a.LastUpdateSource, b.LastUpdateSource = "", ""
	a.Status, b.Status = withoutReceipt(a.Status), withoutReceipt(b.Status)
	return reflect.DeepEqual(a, b)
}

func withoutReceipt(r *StatusReport) *StatusReport {
	if r == nil {
		return nil
	}
	c := *r
	c.ReceivedAt = time.Time{}
	return &c
}
