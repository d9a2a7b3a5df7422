package ace

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// ResponseKind tags a classified firmware line.
type ResponseKind int

// Response kinds.
const (
	KindUnrecognized ResponseKind = iota
	KindInventory
	KindIndex
	KindEndlessSpool
	KindAcknowledgement
)

func (k ResponseKind) String() string {
	switch k {
	case KindInventory:
		return "inventory"
	case KindIndex:
		return "index"
	case KindEndlessSpool:
		return "endless_spool"
	case KindAcknowledgement:
		return "acknowledgement"
	default:
		return "unrecognized"
	}
}

// MarshalText renders the kind by name.
func (k ResponseKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Response is the classification of one line.
type Response struct {
	Kind ResponseKind `json:"kind"`

	// Inventory is set for KindInventory. It may be empty.
	Inventory []InventoryEntry `json:"inventory,omitempty"`

	// Index is set for KindIndex.
	Index int `json:"index"`

	// Fallback marks an index recovered from free text rather than the
	// structured reply. It is best effort.
	Fallback bool `json:"fallback,omitempty"`

	// EndlessSpool is set for KindEndlessSpool.
	EndlessSpool bool `json:"endless_spool"`

	// Text is the trimmed input line.
	Text string `json:"text"`

	// Err describes why a line that matched a pattern was still unrecognized.
	Err string `json:"error,omitempty"`
}

const (
	commentMarker      = "//"
	endlessSpoolPrefix = "- Currently enabled:"
	deviceMarker       = "ACE:"
)

var (
	indexPattern   = regexp.MustCompile(`^[+-]?\d+$`)
	integerPattern = regexp.MustCompile(`\d+`)
	toolWords      = []string{"loaded", "changed", "active"}
)

// Classify maps one firmware line to a Response. It is pure: no logging and
// no state. Patterns are tried in a fixed order and the first match wins:
//
//  1. "// [...]"                     slot inventory (JSON list)
//  2. "// <int>"                     loaded index
//  3. "// - Currently enabled: X"    endless spool (True or False)
//  4. "ACE: ... tool ... loaded"     loaded index from free text (fallback)
//  5. anything else
//
// A line containing the device marker that does not satisfy rule 4 is an
// acknowledgement.
func Classify(line string) Response {
	text := strings.TrimSpace(line)
	r := Response{Kind: KindUnrecognized, Text: text}

	if rest, ok := strings.CutPrefix(text, commentMarker); ok {
		rest = strings.TrimSpace(rest)

		switch {
		case strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]"):
			return classifyInventory(r, rest)
		case indexPattern.MatchString(rest):
			n, err := strconv.Atoi(rest)
			if err != nil {
				r.Err = err.Error()
				return r
			}
			r.Kind, r.Index = KindIndex, n
			return r
		case strings.HasPrefix(rest, endlessSpoolPrefix):
			switch strings.TrimSpace(strings.TrimPrefix(rest, endlessSpoolPrefix)) {
			case "True":
				r.Kind, r.EndlessSpool = KindEndlessSpool, true
			case "False":
				r.Kind, r.EndlessSpool = KindEndlessSpool, false
			default:
				r.Err = "endless spool status is neither True nor False"
			}
			return r
		}
	}

	if strings.Contains(text, deviceMarker) {
		if idx, ok := toolChangeIndex(text); ok {
			r.Kind, r.Index, r.Fallback = KindIndex, idx, true
			return r
		}
		r.Kind = KindAcknowledgement
	}
	return r
}

func classifyInventory(r Response, payload string) Response {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()

	var values []any
	if err := dec.Decode(&values); err != nil {
		r.Err = err.Error()
		return r
	}
	if dec.More() {
		r.Err = "trailing data after inventory list"
		return r
	}

	r.Kind = KindInventory
	r.Inventory = entriesFromValues(values)
	return r
}

// toolChangeIndex finds a slot number in free-text tool change messages such
// as "ACE: Tool 2 loaded".
func toolChangeIndex(text string) (int, bool) {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "tool") {
		return 0, false
	}
	found := false
	for _, w := range toolWords {
		if strings.Contains(lower, w) {
			found = true
			break
		}
	}
	if !found {
		return 0, false
	}

	m := integerPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil || !ValidSlotIndex(n) {
		return 0, false
	}
	return n, true
}
