package osc

import gosc "github.com/hypebeast/go-osc/osc"

// Message is the decoded OSC message type used throughout the bridge.
type Message = gosc.Message

// NewMessage returns a message for addr with the given arguments appended.
func NewMessage(addr string, args ...any) *Message {
	return gosc.NewMessage(addr, args...)
}

// IntArg returns argument i as an int when it is an OSC int32 (or int64).
func IntArg(m *Message, i int) (int, bool) {
	if m == nil || i < 0 || i >= len(m.Arguments) {
		return 0, false
	}
	switch v := m.Arguments[i].(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

// StringArg returns argument i when it is an OSC string.
func StringArg(m *Message, i int) (string, bool) {
	if m == nil || i < 0 || i >= len(m.Arguments) {
		return "", false
	}
	s, ok := m.Arguments[i].(string)
	return s, ok
}

// Int32s converts ints to the int32 arguments OSC "i" type tags require.
func Int32s(vals ...int) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = int32(v) //nolint:gosec // device coordinates and deltas are small
	}
	return out
}
