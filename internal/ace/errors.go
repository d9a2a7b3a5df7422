package ace

import "errors"

// Domain errors for the ace package.
//
// Dispatcher validation failures wrap one of these; check with errors.Is:
//
//	if errors.Is(err, ace.ErrSlotEmpty) {
//	    // tell the user to insert a spool
//	}
var (
	// ErrInvalidSlot is returned for a slot index outside 0..3.
	ErrInvalidSlot = errors.New("ace: invalid slot index")

	// ErrSlotEmpty is returned when loading a slot that holds no spool.
	ErrSlotEmpty = errors.New("ace: slot empty")

	// ErrInvalidMaterial is returned for a material outside the known set.
	ErrInvalidMaterial = errors.New("ace: invalid material")

	// ErrInvalidColor is returned when a color component is outside [0,255].
	ErrInvalidColor = errors.New("ace: invalid color")

	// ErrInvalidTemperature is returned for a slot temperature outside [0,300].
	ErrInvalidTemperature = errors.New("ace: invalid temperature")

	// ErrInvalidDryerTemp is returned for a dryer temperature outside [35,55].
	ErrInvalidDryerTemp = errors.New("ace: dryer temperature out of range")

	// ErrInvalidDuration is returned for a non-positive dryer duration.
	ErrInvalidDuration = errors.New("ace: invalid dryer duration")

	// ErrSendFailed is returned when a command could not be handed to the
	// command channel. The optimistic state change is kept.
	ErrSendFailed = errors.New("ace: command send failed")

	// ErrInventoryMissing is returned when the persisted inventory is absent
	// or cannot be decoded.
	ErrInventoryMissing = errors.New("ace: ace_inventory not found or invalid")

	// ErrSlotNotFound is returned when the persisted inventory has no entry
	// for the requested index.
	ErrSlotNotFound = errors.New("ace: slot not found in inventory")

	// ErrInvalidStatus is returned for an undecodable status report.
	ErrInvalidStatus = errors.New("ace: invalid status report")
)
