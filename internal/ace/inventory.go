package ace

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/ace-core/internal/literal"
)

// InventoryEntry is one slot dict from an inventory dump, as received.
// Fields are kept raw so the cache can validate them one at a time.
type InventoryEntry struct {
	// Position is the element's place in the list.
	Position int `json:"position"`

	// Index is the element's own index field, when HasIndex is set.
	Index    int  `json:"index"`
	HasIndex bool `json:"has_index"`

	Status   string `json:"status"`
	Material string `json:"material,omitempty"`

	Color    Color `json:"color"`
	HasColor bool  `json:"has_color"`
	ColorOK  bool  `json:"color_ok"`

	Temp    int  `json:"temp"`
	HasTemp bool `json:"has_temp"`
	TempOK  bool `json:"temp_ok"`
}

// Slot returns the slot the entry addresses: its index field when present,
// otherwise its list position.
func (e InventoryEntry) Slot() int {
	if e.HasIndex {
		return e.Index
	}
	return e.Position
}

// Ready reports whether the entry describes a loaded spool.
func (e InventoryEntry) Ready() bool {
	return strings.EqualFold(e.Status, string(OccupancyReady))
}

// knownOccupancy reports whether status is an occupancy the cache merges.
func knownOccupancy(status string) bool {
	return strings.EqualFold(status, string(OccupancyReady)) ||
		strings.EqualFold(status, string(OccupancyEmpty))
}

// Record merges the entry over prior. A non-ready entry yields the default
// empty record. For a ready entry each field is validated on its own and an
// invalid field keeps its prior value; rejected names the fields dropped.
func (e InventoryEntry) Record(prior SlotRecord) (rec SlotRecord, rejected []string) {
	if !e.Ready() {
		return DefaultSlot(), nil
	}

	rec = prior
	rec.Occupancy = OccupancyReady
	if e.Material != "" {
		rec.Material = materialFromDevice(e.Material)
	}
	switch {
	case e.HasColor && e.ColorOK:
		rec.Color = e.Color
	case e.HasColor:
		rejected = append(rejected, "color")
	}
	switch {
	case e.HasTemp && e.TempOK:
		rec.TargetTemp = e.Temp
	case e.HasTemp:
		rejected = append(rejected, "temp")
	}
	return rec, rejected
}

// entriesFromValues converts a decoded list into entries. Elements that are
// not dicts or whose status is neither ready nor empty are skipped. A ready
// element replaces the whole record, so fields it leaves out take the
// default slot values.
func entriesFromValues(values []any) []InventoryEntry {
	entries := make([]InventoryEntry, 0, len(values))
	for pos, v := range values {
		statusVal, ok := lookup(v, "status")
		if !ok {
			continue
		}
		status, ok := statusVal.(string)
		if !ok || !knownOccupancy(status) {
			continue
		}

		e := InventoryEntry{Position: pos, Status: status}

		if iv, ok := lookup(v, "index"); ok {
			if idx, ok := toInt(iv); ok {
				e.Index, e.HasIndex = idx, true
			}
		}

		for _, key := range []string{"material", "type"} {
			if mv, ok := lookup(v, key); ok {
				if m, ok := mv.(string); ok && m != "" {
					e.Material = m
					break
				}
			}
		}

		if cv, ok := lookup(v, "color"); ok && cv != nil {
			e.HasColor = true
			if c, err := ParseColor(cv); err == nil {
				e.Color, e.ColorOK = c, true
			}
		}

		if tv, ok := lookup(v, "temp"); ok && tv != nil {
			e.HasTemp = true
			if t, ok := toInt(tv); ok && ValidSlotTemp(t) {
				e.Temp, e.TempOK = t, true
			}
		}

		if e.Ready() {
			e.fillDefaults()
		}
		entries = append(entries, e)
	}
	return entries
}

func (e *InventoryEntry) fillDefaults() {
	def := DefaultSlot()
	if e.Material == "" {
		e.Material = string(def.Material)
	}
	if !e.HasColor {
		e.Color, e.HasColor, e.ColorOK = def.Color, true, true
	}
	if !e.HasTemp {
		e.Temp, e.HasTemp, e.TempOK = def.TargetTemp, true, true
	}
}

// DecodeInventory parses a persisted ace_inventory value. Both Python
// literal and JSON text are accepted.
func DecodeInventory(s string) ([]InventoryEntry, error) {
	values, err := literal.DecodeList(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInventoryMissing, err)
	}
	return entriesFromValues(values), nil
}

// EncodeInventory writes slots in the Python literal form the firmware
// stores in ace_inventory.
func EncodeInventory(slots [SlotCount]SlotRecord) (string, error) {
	list := make([]any, 0, SlotCount)
	for i, s := range slots {
		list = append(list, slotDict(i, s))
	}
	return literal.Encode(list)
}

func slotDict(index int, s SlotRecord) literal.Dict {
	return literal.Dict{
		{Key: "index", Value: index},
		{Key: "status", Value: string(s.Occupancy)},
		{Key: "material", Value: string(s.Material)},
		{Key: "color", Value: []int{s.Color[0], s.Color[1], s.Color[2]}},
		{Key: "temp", Value: s.TargetTemp},
	}
}

// ParseColor accepts a color as a list of three numbers, a JSON list in a
// string, or an "r,g,b" string.
func ParseColor(v any) (Color, error) {
	var parts []any
	switch x := v.(type) {
	case Color:
		parts = []any{x[0], x[1], x[2]}
	case []int:
		for _, n := range x {
			parts = append(parts, n)
		}
	case []any:
		parts = x
	case string:
		s := strings.TrimSpace(x)
		if strings.HasPrefix(s, "[") {
			if err := json.Unmarshal([]byte(s), &parts); err != nil {
				return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, x)
			}
		} else {
			for _, p := range strings.Split(s, ",") {
				parts = append(parts, strings.TrimSpace(p))
			}
		}
	default:
		return Color{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidColor, v)
	}

	if len(parts) != 3 {
		return Color{}, fmt.Errorf("%w: want 3 components, got %d", ErrInvalidColor, len(parts))
	}
	var c Color
	for i, p := range parts {
		n, ok := toInt(p)
		if !ok {
			return Color{}, fmt.Errorf("%w: component %d is not an integer", ErrInvalidColor, i)
		}
		c[i] = n
	}
	if !c.Valid() {
		return Color{}, fmt.Errorf("%w: %v", ErrInvalidColor, c)
	}
	return c, nil
}

// lookup reads key from a decoded dict of either flavour.
func lookup(v any, key string) (any, bool) {
	switch d := v.(type) {
	case literal.Dict:
		return d.Get(key)
	case map[string]any:
		val, ok := d[key]
		return val, ok
	}
	return nil, false
}

// toInt converts decoded numbers and numeric strings to int. Booleans and
// non-integral floats are rejected.
func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int(x), true
	case json.Number:
		n, err := x.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}
