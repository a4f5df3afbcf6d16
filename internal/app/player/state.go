// Package player provides per-channel playback scheduling with queue and
// skip-vote management.
package player

// State represents the playback state of a channel.
type State int

const (
	StateIdle    State = iota // Nothing playing (queue empty or stopped)
	StatePlaying              // An entry is playing
	StatePaused               // The current entry is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
