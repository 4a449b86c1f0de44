// Package live manages a bidirectional Gemini Live voice session: microphone
// audio up, synthesized speech down, with gapless playback scheduling and
// interruption handling.
//
// A Manager owns the microphone and both audio contexts for the lifetime of
// one connection. Teardown releases them in a fixed order and may be called
// any number of times from any state.
package live

import "fmt"

// State is the lifecycle state of a live session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateInterrupted
	StateClosed
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateInterrupted:
		return "interrupted"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText lets State appear as its name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Active reports whether a connection is being made or is open.
func (s State) Active() bool {
	return s == StateConnecting || s == StateStreaming || s == StateInterrupted
}

// Status is a snapshot pushed to status listeners.
type Status struct {
	State  State   `json:"state"`
	Volume float64 `json:"volume"`
	Error  string  `json:"error,omitempty"`
}
