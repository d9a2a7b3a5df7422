package gcode

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Device command names understood by the ACE firmware module.
const (
	CmdQuerySlots          = "ACE_QUERY_SLOTS"
	CmdGetCurrentIndex     = "ACE_GET_CURRENT_INDEX"
	CmdEndlessSpoolStatus  = "ACE_ENDLESS_SPOOL_STATUS"
	CmdChangeTool          = "ACE_CHANGE_TOOL"
	CmdSetSlot             = "ACE_SET_SLOT"
	CmdEnableEndlessSpool  = "ACE_ENABLE_ENDLESS_SPOOL"
	CmdDisableEndlessSpool = "ACE_DISABLE_ENDLESS_SPOOL"
	CmdStartDrying         = "ACE_START_DRYING"
	CmdStopDrying          = "ACE_STOP_DRYING"
	CmdSaveVariable        = "SAVE_VARIABLE"
	CmdEmergencyStop       = "M112"
)

// Param is a single KEY=value argument.
type Param struct {
	Key   string
	Value string
}

// Command is one line of G-code.
type Command struct {
	Name   string
	Params []Param
}

// String renders the command as it is sent to the firmware.
func (c Command) String() string {
	if len(c.Params) == 0 {
		return c.Name
	}
	var b strings.Builder
	b.WriteString(c.Name)
	for _, p := range c.Params {
		b.WriteByte(' ')
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	return b.String()
}

func newCommand(name string, kv ...string) Command {
	c := Command{Name: name}
	for i := 0; i+1 < len(kv); i += 2 {
		c.Params = append(c.Params, Param{Key: kv[i], Value: kv[i+1]})
	}
	return c
}

// QuerySlots asks the device to dump its slot inventory.
func QuerySlots() Command { return newCommand(CmdQuerySlots) }

// GetCurrentIndex asks which slot is loaded.
func GetCurrentIndex() Command { return newCommand(CmdGetCurrentIndex) }

// EndlessSpoolStatus asks for the endless spool mode.
func EndlessSpoolStatus() Command { return newCommand(CmdEndlessSpoolStatus) }

// ChangeTool loads slot index, or unloads when index is -1.
func ChangeTool(index int) Command {
	return newCommand(CmdChangeTool, "TOOL", strconv.Itoa(index))
}

// SetSlot writes a slot's material, color and printing temperature.
func SetSlot(index int, color [3]int, material string, temp int) Command {
	return newCommand(CmdSetSlot,
		"INDEX", strconv.Itoa(index),
		"COLOR", fmt.Sprintf("%d,%d,%d", color[0], color[1], color[2]),
		"MATERIAL", material,
		"TEMP", strconv.Itoa(temp),
	)
}

// SetSlotEmpty marks a slot empty.
func SetSlotEmpty(index int) Command {
	return newCommand(CmdSetSlot, "INDEX", strconv.Itoa(index), "EMPTY", "1")
}

// EnableEndlessSpool turns endless spool mode on.
func EnableEndlessSpool() Command { return newCommand(CmdEnableEndlessSpool) }

// DisableEndlessSpool turns endless spool mode off.
func DisableEndlessSpool() Command { return newCommand(CmdDisableEndlessSpool) }

// StartDrying starts the dryer at temp °C for duration minutes.
func StartDrying(temp, duration int) Command {
	return newCommand(CmdStartDrying, "TEMP", strconv.Itoa(temp), "DURATION", strconv.Itoa(duration))
}

// StopDrying stops the dryer.
func StopDrying() Command { return newCommand(CmdStopDrying) }

// EmergencyStop halts the printer controller.
func EmergencyStop() Command { return newCommand(CmdEmergencyStop) }

// SaveVariable persists a firmware variable. The value is wrapped in double
// quotes with embedded double quotes escaped, which is how the firmware
// expects Python literal values.
func SaveVariable(name, value string) Command {
	escaped := strings.ReplaceAll(value, `"`, `\"`)
	return newCommand(CmdSaveVariable, "VARIABLE", name, "VALUE", `"`+escaped+`"`)
}

// FormatScript renders a free-form command with params appended as
// space-separated KEY=value pairs. Booleans become 1 or 0. Params are sorted by
// key so the same request always yields the same script.
func FormatScript(command string, params map[string]any) string {
	command = strings.TrimSpace(command)
	if len(params) == 0 {
		return command
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := Command{Name: command}
	for _, k := range keys {
		c.Params = append(c.Params, Param{Key: k, Value: formatValue(params[k])})
	}
	return c.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
