package relay

import (
	"github.com/nerrad567/gridosc/internal/device"
	"github.com/nerrad567/gridosc/internal/osc"
)

// Path suffixes for relayed events.
const (
	SuffixGridKey  = "grid/key"
	SuffixEncDelta = "enc/delta"
	SuffixEncKey   = "enc/key"
	SuffixTilt     = "tilt"
)

// Session announcement paths. These are never prefixed.
const (
	PathConnect    = "/sys/connect"
	PathDisconnect = "/sys/disconnect"
)

// Message is an outgoing OSC message with integer arguments.
type Message struct {
	Path string
	Args []int32
}

// OSC converts m into a wire message.
func (m Message) OSC() *osc.Message {
	args := make([]any, len(m.Args))
	for i, a := range m.Args {
		args[i] = a
	}
	return osc.NewMessage(m.Path, args...)
}

// Outlet is where relayed messages go. Prefix is read on every event so
// prefix changes made during the session take effect immediately.
type Outlet interface {
	Prefix() string
	Send(m Message) error
}

// Path joins a prefix and a method suffix.
func Path(prefix, suffix string) string {
	return osc.Path(prefix, suffix)
}

// Translate builds the outgoing message for ev under prefix. It reports
// false for event types that have no mapping.
func Translate(prefix string, ev device.Event) (Message, bool) {
	switch ev.Type {
	case device.ButtonDown, device.ButtonUp:
		pressed, _ := ev.Type.KeyState()
		return Message{
			Path: Path(prefix, SuffixGridKey),
			Args: []int32{int32(ev.Grid.X), int32(ev.Grid.Y), flag(pressed)}, //nolint:gosec // grid coordinates are small
		}, true

	case device.EncoderDelta:
		return Message{
			Path: Path(prefix, SuffixEncDelta),
			Args: []int32{int32(ev.Encoder.Number), int32(ev.Encoder.Delta)}, //nolint:gosec // encoder index and delta are small
		}, true

	case device.EncoderKeyDown, device.EncoderKeyUp:
		pressed, _ := ev.Type.KeyState()
		return Message{
			Path: Path(prefix, SuffixEncKey),
			Args: []int32{int32(ev.Encoder.Number), flag(pressed)}, //nolint:gosec // encoder index is small
		}, true

	case device.Tilt:
		return Message{
			Path: Path(prefix, SuffixTilt),
			Args: []int32{
				int32(ev.Tilt.Sensor), //nolint:gosec // sensor index is small
				int32(ev.Tilt.X),      //nolint:gosec // tilt axes fit in int32
				int32(ev.Tilt.Y),      //nolint:gosec // tilt axes fit in int32
				int32(ev.Tilt.Z),      //nolint:gosec // tilt axes fit in int32
			},
		}, true
	}
	return Message{}, false
}

// Register installs one handler per event type on reg. Every handler
// translates the event under the outlet's current prefix and sends it,
// discarding send errors.
func Register(reg device.Registrar, out Outlet) {
	for _, t := range device.EventTypes() {
		reg.RegisterHandler(t, func(ev device.Event) {
			msg, ok := Translate(out.Prefix(), ev)
			if !ok {
				return
			}
			_ = out.Send(msg) //nolint:errcheck // delivery is best effort
		})
	}
}

// ConnectionStatus sends /sys/connect when connected is true and
// /sys/disconnect otherwise.
func ConnectionStatus(out Outlet, connected bool) {
	path := PathDisconnect
	if connected {
		path = PathConnect
	}
	_ = out.Send(Message{Path: path}) //nolint:errcheck // delivery is best effort
}

func flag(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
