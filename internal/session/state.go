package session

import "strconv"

// State is a step of the session lifecycle.
type State int32

// Session states in lifecycle order. Error is terminal and replaces
// Terminated when setup fails.
const (
	StateInit State = iota
	StateConfigured
	StateListening
	StateActive
	StateDraining
	StateTerminated
	StateError
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConfigured:
		return "configured"
	case StateListening:
		return "listening"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	case StateError:
		return "error"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}
