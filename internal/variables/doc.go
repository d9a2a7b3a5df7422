// Package variables implements the persisted variable store.
//
// Variables are opaque text values keyed by name (ace_current_index,
// ace_inventory, ace_filament_pos). The Store keeps them in SQLite and
// notifies watchers when a value changes. The Mirror keeps the store in
// step with retained MQTT topics so the firmware bridge and acecore see
// the same values.
package variables
