package literal

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode_PythonInventory(t *testing.T) {
	in := `[{'index': 0, 'status': 'ready', 'type': 'PLA', 'color': [255, 0, 0], 'temp': 220, 'rfid': False, 'sku': None}, {'index': 1, 'status': 'empty'}]`

	got, err := Decode(in)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := []any{
		Dict{
			{Key: "index", Value: int64(0)},
			{Key: "status", Value: "ready"},
			{Key: "type", Value: "PLA"},
			{Key: "color", Value: []any{int64(255), int64(0), int64(0)}},
			{Key: "temp", Value: int64(220)},
			{Key: "rfid", Value: false},
			{Key: "sku", Value: nil},
		},
		Dict{
			{Key: "index", Value: int64(1)},
			{Key: "status", Value: "empty"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_JSON(t *testing.T) {
	in := `[{"index":2,"status":"ready","material":"PETG","color":[0,255,0],"temp":240.5,"ok":true,"note":null}]`

	got, err := DecodeList(in)
	if err != nil {
		t.Fatalf("DecodeList() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	d, ok := got[0].(Dict)
	if !ok {
		t.Fatalf("element type = %T, want Dict", got[0])
	}
	if v, _ := d.Get("temp"); v != 240.5 {
		t.Errorf("temp = %v, want 240.5", v)
	}
	if v, _ := d.Get("ok"); v != true {
		t.Errorf("ok = %v, want true", v)
	}
	if !d.Has("note") {
		t.Error("note key missing")
	}
}

func TestDecode_Scalars(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"-1", int64(-1)},
		{"+3", int64(3)},
		{"1_000", int64(1000)},
		{"1.5e2", 150.0},
		{"'it\\'s'", "it's"},
		{`"tab\there"`, "tab\there"},
		{`'\x41B'`, "AB"},
		{"(1, 2,)", []any{int64(1), int64(2)}},
		{"  True  ", true},
		{"None", nil},
		{"{}", Dict{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Decode(tt.in)
			if err != nil {
				t.Fatalf("Decode(%q) error = %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	inputs := []string{
		"",
		"[1, 2",
		"{'a' 1}",
		"'unterminated",
		"[1] trailing",
		"maybe",
		"{[1]: 2}",
		"-",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Decode(in)
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("Decode(%q) error = %v, want ErrSyntax", in, err)
			}
		})
	}
}

func TestDecodeList_RejectsNonList(t *testing.T) {
	if _, err := DecodeList("{'a': 1}"); !errors.Is(err, ErrSyntax) {
		t.Errorf("DecodeList() error = %v, want ErrSyntax", err)
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"none", nil, "None"},
		{"bools", []any{true, false}, "[True, False]"},
		{"string", "PLA", "'PLA'"},
		{"string with quote", "it's", `"it's"`},
		{"string with both quotes", `a'b"c`, `'a\'b"c'`},
		{"control chars", "a\nb", `'a\nb'`},
		{"float", 3.0, "3.0"},
		{"ints", []int{255, 0, 7}, "[255, 0, 7]"},
		{
			"ordered dict",
			Dict{{Key: "index", Value: 0}, {Key: "status", Value: "ready"}, {Key: "color", Value: []int{1, 2, 3}}},
			"{'index': 0, 'status': 'ready', 'color': [1, 2, 3]}",
		},
		{"map sorted", map[string]any{"b": int64(2), "a": int64(1)}, "{'a': 1, 'b': 2}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEncode_Unsupported(t *testing.T) {
	if _, err := Encode(struct{}{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Encode(struct) error = %v, want ErrUnsupported", err)
	}
}

func TestEncodeDecode_PreservesValues(t *testing.T) {
	original := []any{
		Dict{
			{Key: "index", Value: int64(3)},
			{Key: "name", Value: `He said "hi" and it's fine`},
			{Key: "ratio", Value: 0.25},
			{Key: "tags", Value: []any{"a", nil, true}},
		},
	}

	text, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	back, err := Decode(text)
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", text, err)
	}
	if diff := cmp.Diff(original, back); diff != "" {
		t.Errorf("value changed across Encode/Decode (-want +got):\n%s", diff)
	}
}

func TestDictSet(t *testing.T) {
	d := Dict{{Key: "a", Value: 1}}
	d.Set("a", 2)
	d.Set("b", 3)

	if len(d) != 2 {
		t.Fatalf("len = %d, want 2", len(d))
	}
	if v, _ := d.Get("a"); v != 2 {
		t.Errorf("a = %v, want 2", v)
	}
	if d[1].Key != "b" {
		t.Errorf("new key appended at %q, want b", d[1].Key)
	}
}

func TestDictMarshalJSON_KeepsOrder(t *testing.T) {
	d := Dict{{Key: "index", Value: int64(0)}, {Key: "color", Value: []any{int64(1), int64(2), int64(3)}}, {Key: "status", Value: "ready"}}

	got, err := json.Marshal([]any{d})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `[{"index":0,"color":[1,2,3],"status":"ready"}]`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}
