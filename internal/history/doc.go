// Package history keeps a log of reconciled device state.
//
// Every cache change is queued by a Recorder and written as a JSON
// snapshot to the ace_state_history table. The API reads it back newest
// first.
package history
