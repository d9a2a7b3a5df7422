package ace

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    Color
		wantErr bool
	}{
		{name: "int slice", in: []int{1, 2, 3}, want: Color{1, 2, 3}},
		{name: "any slice", in: []any{int64(255), float64(0), "7"}, want: Color{255, 0, 7}},
		{name: "json string", in: "[10, 20, 30]", want: Color{10, 20, 30}},
		{name: "csv string", in: " 4, 5 ,6", want: Color{4, 5, 6}},
		{name: "color", in: White, want: White},
		{name: "too few", in: []int{1, 2}, wantErr: true},
		{name: "out of range", in: []int{0, 0, 256}, wantErr: true},
		{name: "fractional", in: []any{1.5, 2.0, 3.0}, wantErr: true},
		{name: "bad json", in: "[1, 2", wantErr: true},
		{name: "bad type", in: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidColor) {
					t.Fatalf("ParseColor(%v) error = %v, want ErrInvalidColor", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColor(%v) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeInventory_PositionFallback(t *testing.T) {
	entries, err := DecodeInventory(`[{'status': 'ready', 'material': 'ABS'}, {'status': 'ready', 'index': 3}]`)
	if err != nil {
		t.Fatalf("DecodeInventory() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Slot() != 0 {
		t.Errorf("entries[0].Slot() = %d, want position 0", entries[0].Slot())
	}
	if entries[1].Slot() != 3 {
		t.Errorf("entries[1].Slot() = %d, want index field 3", entries[1].Slot())
	}
}

func TestDecodeInventory_Invalid(t *testing.T) {
	for _, in := range []string{"", "None", "{'index': 0}", "[1, 2"} {
		if _, err := DecodeInventory(in); !errors.Is(err, ErrInventoryMissing) {
			t.Errorf("DecodeInventory(%q) error = %v, want ErrInventoryMissing", in, err)
		}
	}
}

func TestEncodeInventory(t *testing.T) {
	slots := [SlotCount]SlotRecord{DefaultSlot(), DefaultSlot(), DefaultSlot(), DefaultSlot()}
	slots[0] = SlotRecord{Material: MaterialPETG, Color: Color{255, 0, 0}, TargetTemp: 240, Occupancy: OccupancyReady}

	got, err := EncodeInventory(slots)
	if err != nil {
		t.Fatalf("EncodeInventory() error = %v", err)
	}
	want := "[{'index': 0, 'status': 'ready', 'material': 'PETG', 'color': [255, 0, 0], 'temp': 240}, " +
		"{'index': 1, 'status': 'empty', 'material': 'PLA', 'color': [255, 255, 255], 'temp': 200}, " +
		"{'index': 2, 'status': 'empty', 'material': 'PLA', 'color': [255, 255, 255], 'temp': 200}, " +
		"{'index': 3, 'status': 'empty', 'material': 'PLA', 'color': [255, 255, 255], 'temp': 200}]"
	if got != want {
		t.Errorf("EncodeInventory() =\n%s\nwant\n%s", got, want)
	}
}

func TestInventoryEntry_Record(t *testing.T) {
	prior := SlotRecord{Material: MaterialPLA, Color: Color{1, 1, 1}, TargetTemp: 205, Occupancy: OccupancyReady}

	t.Run("not ready resets", func(t *testing.T) {
		rec, rejected := InventoryEntry{Status: "runout"}.Record(prior)
		if diff := cmp.Diff(DefaultSlot(), rec); diff != "" {
			t.Errorf("record mismatch (-want +got):\n%s", diff)
		}
		if len(rejected) != 0 {
			t.Errorf("rejected = %v", rejected)
		}
	})

	t.Run("missing fields keep prior", func(t *testing.T) {
		rec, _ := InventoryEntry{Status: "Ready"}.Record(prior)
		if diff := cmp.Diff(prior, rec); diff != "" {
			t.Errorf("record mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rejected fields named", func(t *testing.T) {
		_, rejected := InventoryEntry{Status: "ready", HasColor: true, HasTemp: true}.Record(prior)
		if diff := cmp.Diff([]string{"color", "temp"}, rejected); diff != "" {
			t.Errorf("rejected mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestParseMaterial(t *testing.T) {
	if m, ok := ParseMaterial(" petg "); !ok || m != MaterialPETG {
		t.Errorf("ParseMaterial(petg) = %q, %v", m, ok)
	}
	if _, ok := ParseMaterial("Nylon"); ok {
		t.Error("ParseMaterial(Nylon) ok = true, want false")
	}
	if got := materialFromDevice("Nylon"); got != MaterialOther {
		t.Errorf("materialFromDevice(Nylon) = %q, want OTHER", got)
	}
}
