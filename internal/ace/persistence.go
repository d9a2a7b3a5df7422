package ace

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/nerrad567/ace-core/internal/gcode"
	"github.com/nerrad567/ace-core/internal/literal"
)

// Persisted variable keys.
const (
	KeyCurrentIndex = "ace_current_index"
	KeyInventory    = "ace_inventory"
	KeyFilamentPos  = "ace_filament_pos"
)

// SourceLocal tags store writes made by this process.
const SourceLocal = "local"

// MaterialTemps are the printing temperatures filled in when a slot's
// material changes and no temperature is given. Materials not listed keep
// the slot's current temperature.
var MaterialTemps = map[Material]int{
	MaterialPLA:   220,
	MaterialPETG:  250,
	MaterialABS:   250,
	MaterialASA:   255,
	MaterialOther: 0,
}

// VariableStore is the key/value store holding persisted variables.
type VariableStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value, source string) error
}

// SlotPatch changes some fields of one stored inventory slot. Nil fields
// are left alone.
type SlotPatch struct {
	Index    int
	Color    *Color
	Material *string
	Temp     *int
}

// Variables is the raw persisted state as the status endpoint reports it.
type Variables struct {
	Inventory    []any  `json:"ace_inventory"`
	FilamentPos  string `json:"filament_pos"`
	CurrentIndex *int   `json:"current_index"`
}

// Persistence connects the variable store to the cache.
//
// Values read from the store are decoded permissively and merged into the
// cache with source persisted. Slot edits are read-modify-write of the
// whole ace_inventory value; concurrent writers elsewhere follow
// last-writer-wins.
type Persistence struct {
	store  VariableStore
	cache  *Cache
	logger Logger

	// forward, when set, receives SAVE_VARIABLE for every inventory write.
	forward Sender

	mu sync.Mutex // serialises local read-modify-write
}

// NewPersistence creates an adapter between store and cache.
func NewPersistence(store VariableStore, cache *Cache) *Persistence {
	return &Persistence{
		store:  store,
		cache:  cache,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the adapter.
func (p *Persistence) SetLogger(logger Logger) {
	p.logger = logger
}

// SetForwarder makes inventory writes also go to the firmware as
// SAVE_VARIABLE commands. A nil sender disables forwarding.
func (p *Persistence) SetForwarder(s Sender) {
	p.forward = s
}

// Restore reads all persisted keys and merges them into the cache. Missing
// or undecodable values are skipped.
func (p *Persistence) Restore(ctx context.Context) error {
	var ps PersistedState

	if v, ok, err := p.store.Get(ctx, KeyCurrentIndex); err != nil {
		return fmt.Errorf("reading %s: %w", KeyCurrentIndex, err)
	} else if ok {
		if idx, ok := parseIndex(v); ok {
			ps.Index = &idx
		} else {
			p.logger.Warn("ignoring undecodable variable", "key", KeyCurrentIndex, "value", v)
		}
	}

	if v, ok, err := p.store.Get(ctx, KeyInventory); err != nil {
		return fmt.Errorf("reading %s: %w", KeyInventory, err)
	} else if ok {
		entries, err := DecodeInventory(v)
		if err != nil {
			p.logger.Warn("ignoring undecodable variable", "key", KeyInventory, "error", err)
		} else {
			ps.Inventory = entries
		}
	}

	if v, ok, err := p.store.Get(ctx, KeyFilamentPos); err != nil {
		return fmt.Errorf("reading %s: %w", KeyFilamentPos, err)
	} else if ok {
		ps.FilamentPos = &v
	}

	changed := p.cache.ApplyPersisted(ps)
	p.logger.Info("restored persisted variables",
		"index", ps.Index != nil, "slots", len(ps.Inventory), "changed", changed)
	return nil
}

// HandleChange merges one store change notification into the cache.
// Unknown keys are ignored.
func (p *Persistence) HandleChange(key, value string) {
	var ps PersistedState

	switch key {
	case KeyCurrentIndex:
		idx, ok := parseIndex(value)
		if !ok {
			p.logger.Warn("ignoring undecodable variable", "key", key, "value", value)
			return
		}
		ps.Index = &idx
	case KeyInventory:
		entries, err := DecodeInventory(value)
		if err != nil {
			p.logger.Warn("ignoring undecodable variable", "key", key, "error", err)
			return
		}
		ps.Inventory = entries
	case KeyFilamentPos:
		ps.FilamentPos = &value
	default:
		return
	}

	if p.cache.ApplyPersisted(ps) {
		p.logger.Debug("persisted variable applied", "key", key)
	}
}

// Snapshot returns the raw persisted values.
func (p *Persistence) Snapshot(ctx context.Context) (Variables, error) {
	var vars Variables

	v, ok, err := p.store.Get(ctx, KeyInventory)
	if err != nil {
		return vars, fmt.Errorf("reading %s: %w", KeyInventory, err)
	}
	if ok {
		if list, err := literal.DecodeList(v); err == nil {
			vars.Inventory = list
		}
	}

	if v, ok, err = p.store.Get(ctx, KeyFilamentPos); err != nil {
		return vars, fmt.Errorf("reading %s: %w", KeyFilamentPos, err)
	} else if ok {
		vars.FilamentPos = v
	}

	if v, ok, err = p.store.Get(ctx, KeyCurrentIndex); err != nil {
		return vars, fmt.Errorf("reading %s: %w", KeyCurrentIndex, err)
	} else if ok {
		if idx, ok := parseIndex(v); ok {
			vars.CurrentIndex = &idx
		}
	}
	return vars, nil
}

// UpdateSlot edits one slot of the stored inventory and writes the whole
// inventory back in Python literal form.
//
// A material change without an explicit temperature takes the temperature
// from MaterialTemps. The slot is matched on its "index" field.
func (p *Persistence) UpdateSlot(ctx context.Context, patch SlotPatch) error {
	material, err := validatePatch(patch)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	list, err := p.loadInventory(ctx)
	if err != nil {
		return err
	}

	pos, slot, ok := findSlot(list, patch.Index)
	if !ok {
		return fmt.Errorf("%w: index %d", ErrSlotNotFound, patch.Index)
	}

	if patch.Color != nil {
		c := *patch.Color
		slot.Set("color", []int{c[0], c[1], c[2]})
	}
	if patch.Material != nil {
		slot.Set("type", string(material))
		if slot.Has("material") {
			slot.Set("material", string(material))
		}
		if t, ok := MaterialTemps[material]; ok && patch.Temp == nil {
			slot.Set("temp", t)
		}
	}
	if patch.Temp != nil {
		slot.Set("temp", *patch.Temp)
	}
	list[pos] = slot

	value, err := literal.Encode(list)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", KeyInventory, err)
	}
	if err := p.store.Set(ctx, KeyInventory, value, SourceLocal); err != nil {
		return fmt.Errorf("writing %s: %w", KeyInventory, err)
	}
	p.logger.Info("slot updated", "index", patch.Index)

	p.HandleChange(KeyInventory, value)

	if p.forward != nil {
		cmd := gcode.SaveVariable(KeyInventory, value)
		if err := p.forward.Send(ctx, cmd.String()); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSendFailed, gcode.CmdSaveVariable, err)
		}
	}
	return nil
}

// SetSlotColor changes only the color of a stored slot.
func (p *Persistence) SetSlotColor(ctx context.Context, index int, c Color) error {
	return p.UpdateSlot(ctx, SlotPatch{Index: index, Color: &c})
}

// SetSlotType changes a stored slot's material and fills its temperature
// from MaterialTemps.
func (p *Persistence) SetSlotType(ctx context.Context, index int, material string) error {
	return p.UpdateSlot(ctx, SlotPatch{Index: index, Material: &material})
}

func (p *Persistence) loadInventory(ctx context.Context) ([]any, error) {
	v, ok, err := p.store.Get(ctx, KeyInventory)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", KeyInventory, err)
	}
	if !ok {
		return nil, ErrInventoryMissing
	}
	list, err := literal.DecodeList(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInventoryMissing, err)
	}
	return list, nil
}

func validatePatch(patch SlotPatch) (Material, error) {
	if !ValidSlotIndex(patch.Index) {
		return "", fmt.Errorf("%w: %d", ErrInvalidSlot, patch.Index)
	}
	if patch.Color != nil && !patch.Color.Valid() {
		return "", fmt.Errorf("%w: %v", ErrInvalidColor, *patch.Color)
	}
	if patch.Temp != nil && !ValidSlotTemp(*patch.Temp) {
		return "", fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidTemperature, *patch.Temp, MinSlotTemp, MaxSlotTemp)
	}
	if patch.Material == nil {
		return "", nil
	}
	m, ok := ParseMaterial(*patch.Material)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMaterial, *patch.Material)
	}
	return m, nil
}

// findSlot returns the position in list and a copy of the dict whose index
// field is index. JSON-decoded maps are converted to an ordered dict.
func findSlot(list []any, index int) (int, literal.Dict, bool) {
	for i, v := range list {
		var d literal.Dict
		switch x := v.(type) {
		case literal.Dict:
			d = x
		case map[string]any:
			keys := make([]string, 0, len(x))
			for k := range x {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				d = append(d, literal.Item{Key: k, Value: x[k]})
			}
		default:
			continue
		}
		iv, ok := d.Get("index")
		if !ok {
			continue
		}
		if n, ok := toInt(iv); ok && n == index {
			return i, d, true
		}
	}
	return 0, nil, false
}

func parseIndex(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`)))
	return n, err == nil
}
