package gcode

import "testing"

func TestCommandBuilders(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"query slots", QuerySlots(), "ACE_QUERY_SLOTS"},
		{"current index", GetCurrentIndex(), "ACE_GET_CURRENT_INDEX"},
		{"endless status", EndlessSpoolStatus(), "ACE_ENDLESS_SPOOL_STATUS"},
		{"load", ChangeTool(2), "ACE_CHANGE_TOOL TOOL=2"},
		{"unload", ChangeTool(-1), "ACE_CHANGE_TOOL TOOL=-1"},
		{
			"set slot",
			SetSlot(1, [3]int{255, 128, 0}, "PETG", 240),
			"ACE_SET_SLOT INDEX=1 COLOR=255,128,0 MATERIAL=PETG TEMP=240",
		},
		{"set empty", SetSlotEmpty(3), "ACE_SET_SLOT INDEX=3 EMPTY=1"},
		{"enable endless", EnableEndlessSpool(), "ACE_ENABLE_ENDLESS_SPOOL"},
		{"disable endless", DisableEndlessSpool(), "ACE_DISABLE_ENDLESS_SPOOL"},
		{"start drying", StartDrying(45, 240), "ACE_START_DRYING TEMP=45 DURATION=240"},
		{"stop drying", StopDrying(), "ACE_STOP_DRYING"},
		{"emergency stop", EmergencyStop(), "M112"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSaveVariable_EscapesQuotes(t *testing.T) {
	got := SaveVariable("ace_inventory", `[{'note': "x"}]`).String()
	want := `SAVE_VARIABLE VARIABLE=ace_inventory VALUE="[{'note': \"x\"}]"`
	if got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

func TestFormatScript(t *testing.T) {
	tests := []struct {
		name    string
		command string
		params  map[string]any
		want    string
	}{
		{"no params", " ACE_QUERY_SLOTS ", nil, "ACE_QUERY_SLOTS"},
		{"sorted keys", "ACE_START_DRYING", map[string]any{"TEMP": 50.0, "DURATION": 120.0}, "ACE_START_DRYING DURATION=120 TEMP=50"},
		{"bool true", "CMD", map[string]any{"EMPTY": true}, "CMD EMPTY=1"},
		{"bool false", "CMD", map[string]any{"EMPTY": false}, "CMD EMPTY=0"},
		{"fractional", "CMD", map[string]any{"X": 1.25}, "CMD X=1.25"},
		{"string", "CMD", map[string]any{"MATERIAL": "PLA"}, "CMD MATERIAL=PLA"},
		{"int", "CMD", map[string]any{"TOOL": 3}, "CMD TOOL=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatScript(tt.command, tt.params); got != tt.want {
				t.Errorf("FormatScript() = %q, want %q", got, tt.want)
			}
		})
	}
}
