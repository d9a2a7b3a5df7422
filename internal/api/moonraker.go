package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/nerrad567/ace-core/internal/ace"
	"github.com/nerrad567/ace-core/internal/gcode"
)

// unknown is reported for fields nothing has been heard about yet.
const unknown = "unknown"

// aceStatusView is the body of GET /server/ace/status.
type aceStatusView struct {
	Status       string          `json:"status"`
	Model        string          `json:"model"`
	Firmware     string          `json:"firmware"`
	Dryer        ace.StatusDryer `json:"dryer"`
	Temp         float64         `json:"temp"`
	FanSpeed     float64         `json:"fan_speed"`
	EnableRFID   int             `json:"enable_rfid"`
	Slots        any             `json:"slots"`
	FilamentPos  string          `json:"filament_pos"`
	CurrentIndex int             `json:"current_index"`
}

// defaultStatusSlots is what the status endpoint reports before the
// device has described its slots.
func defaultStatusSlots() []ace.StatusSlot {
	slots := make([]ace.StatusSlot, ace.SlotCount)
	for i := range slots {
		slots[i] = ace.StatusSlot{Index: i, Status: unknown, Color: []int{0, 0, 0}}
	}
	return slots
}

// buildStatus merges the last device report with the persisted variables.
// Without a report the default structure is used; stored values still
// override it.
func (s *Server) buildStatus(r *http.Request) aceStatusView {
	state := s.cache.Read()

	view := aceStatusView{
		Status:       unknown,
		Model:        unknown,
		Firmware:     unknown,
		Dryer:        ace.StatusDryer{Status: "stop"},
		Slots:        defaultStatusSlots(),
		FilamentPos:  unknown,
		CurrentIndex: state.LoadedSlot,
	}

	if st := state.Status; st != nil {
		view.Status = st.Status
		view.Dryer = st.Dryer
		view.Temp = st.Temp
		view.FanSpeed = st.FanSpeed
		view.EnableRFID = st.EnableRFID
		if st.Model != "" {
			view.Model = st.Model
		}
		if st.Firmware != "" {
			view.Firmware = st.Firmware
		}
		if len(st.Slots) > 0 {
			view.Slots = st.Slots
		}
	}
	if state.FilamentPos != "" {
		view.FilamentPos = state.FilamentPos
	}

	vars, err := s.persistence.Snapshot(r.Context())
	if err != nil {
		s.logger.Warn("reading persisted variables for status failed", "error", err)
		return view
	}
	if vars.Inventory != nil {
		view.Slots = vars.Inventory
	}
	if vars.FilamentPos != "" {
		view.FilamentPos = vars.FilamentPos
	}
	if vars.CurrentIndex != nil {
		view.CurrentIndex = *vars.CurrentIndex
	}
	return view
}

func (s *Server) handleAceStatus(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, s.buildStatus(r))
}

func (s *Server) handleAceSlots(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, map[string]any{"slots": s.buildStatus(r).Slots})
}

// handleAceCommand forwards a free-form command. The command comes from
// the query string or the JSON body; params merge from the body's params
// object, a JSON params query argument, and any other query arguments, in
// that order.
func (s *Server) handleAceCommand(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	query := r.URL.Query()
	command := strings.TrimSpace(query.Get("command"))
	if command == "" {
		if c, ok := body["command"].(string); ok {
			command = strings.TrimSpace(c)
		}
	}
	if command == "" {
		writeResult(w, http.StatusOK, map[string]any{"error": "Command parameter is required"})
		return
	}

	params := make(map[string]any)
	if p, ok := body["params"].(map[string]any); ok {
		for k, v := range p {
			params[k] = v
		}
	}
	if raw := query.Get("params"); raw != "" {
		var p map[string]any
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			for k, v := range p {
				params[k] = v
			}
		}
	}
	for k, v := range query {
		if k == "command" || k == "params" || len(v) == 0 {
			continue
		}
		params[k] = v[0]
	}

	script := gcode.FormatScript(command, params)
	if s.sender == nil {
		writeResult(w, http.StatusOK, map[string]any{"success": false, "error": "command channel unavailable", "command": script})
		return
	}
	if err := s.sender.Send(r.Context(), script); err != nil {
		s.logger.Error("executing ACE command failed", "command", script, "error", err)
		writeResult(w, http.StatusOK, map[string]any{"success": false, "error": err.Error(), "command": script})
		return
	}

	writeResult(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Command %s executed successfully", command),
		"command": script,
	})
}

// handleUpdateSlot edits one stored slot. Any of color, type and temp may
// be given; a type change without temp fills the temperature from the
// material table.
func (s *Server) handleUpdateSlot(w http.ResponseWriter, r *http.Request) {
	args, err := readArgs(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	patch, err := slotPatchFromArgs(args)
	if err != nil {
		writeResult(w, http.StatusOK, map[string]any{"error": err.Error()})
		return
	}
	s.finishSlotEdit(w, r, s.persistence.UpdateSlot(r.Context(), patch))
}

func (s *Server) handleSetSlotColor(w http.ResponseWriter, r *http.Request) {
	args, err := readArgs(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if args["color"] == nil {
		writeResult(w, http.StatusOK, map[string]any{"error": "color is required"})
		return
	}
	patch, err := slotPatchFromArgs(map[string]any{"index": args["index"], "color": args["color"]})
	if err != nil {
		writeResult(w, http.StatusOK, map[string]any{"error": err.Error()})
		return
	}
	s.finishSlotEdit(w, r, s.persistence.SetSlotColor(r.Context(), patch.Index, *patch.Color))
}

func (s *Server) handleSetSlotType(w http.ResponseWriter, r *http.Request) {
	args, err := readArgs(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	index, err := argInt(args["index"])
	if err != nil {
		writeResult(w, http.StatusOK, map[string]any{"error": "index: " + err.Error()})
		return
	}
	material, ok := args["type"].(string)
	if !ok {
		writeResult(w, http.StatusOK, map[string]any{"error": "type is required"})
		return
	}
	s.finishSlotEdit(w, r, s.persistence.SetSlotType(r.Context(), index, material))
}

// finishSlotEdit reports the outcome of a stored-inventory edit and, on
// success, pushes the merged status to WebSocket clients.
func (s *Server) finishSlotEdit(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.logger.Warn("slot edit failed", "error", err)
		writeResult(w, http.StatusOK, map[string]any{"error": err.Error()})
		return
	}
	s.hub.Broadcast(EventStatusUpdate, s.buildStatus(r))
	writeResult(w, http.StatusOK, map[string]any{"success": true})
}

// readBody decodes a JSON object body. An empty body is allowed.
func readBody(r *http.Request) (map[string]any, error) {
	args := make(map[string]any)
	if r.Body == nil {
		return args, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &args); err != nil {
			return nil, errors.New("invalid JSON body")
		}
	}
	return args, nil
}

// readArgs merges a JSON object body with the query string. Query values
// win.
func readArgs(r *http.Request) (map[string]any, error) {
	args, err := readBody(r)
	if err != nil {
		return nil, err
	}

	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			args[k] = v[0]
		}
	}
	return args, nil
}

// slotPatchFromArgs builds a patch from loosely typed request arguments.
func slotPatchFromArgs(args map[string]any) (ace.SlotPatch, error) {
	var patch ace.SlotPatch

	index, err := argInt(args["index"])
	if err != nil {
		return patch, fmt.Errorf("index: %w", err)
	}
	patch.Index = index

	if v, ok := args["color"]; ok && v != nil {
		c, err := ace.ParseColor(v)
		if err != nil {
			return patch, err
		}
		patch.Color = &c
	}
	if v, ok := args["type"]; ok && v != nil {
		t, ok := v.(string)
		if !ok {
			return patch, fmt.Errorf("type must be a string")
		}
		patch.Material = &t
	}
	if v, ok := args["temp"]; ok && v != nil {
		t, err := argInt(v)
		if err != nil {
			return patch, fmt.Errorf("temp: %w", err)
		}
		patch.Temp = &t
	}
	return patch, nil
}

// argInt accepts JSON numbers and numeric strings.
func argInt(v any) (int, error) {
	switch x := v.(type) {
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("not an integer: %v", x)
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", x)
		}
		return n, nil
	case nil:
		return 0, errors.New("is required")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
