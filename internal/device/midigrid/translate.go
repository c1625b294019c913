package midigrid

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/nerrad567/gridosc/internal/device"
)

// rowStride is the note distance between two pad rows.
const rowStride = 16

// KeyToXY returns the physical pad coordinates for a note number.
func KeyToXY(key uint8) (x, y int) {
	return int(key) % rowStride, int(key) / rowStride
}

// XYToKey returns the note number for physical pad coordinates.
func XYToKey(x, y int) uint8 {
	return uint8(y*rowStride + x) //nolint:gosec // callers bound x and y to the grid
}

// DecodeRelative reads a relative control value as 7-bit two's complement:
// 1..63 turn clockwise, 64..127 turn counter-clockwise.
func DecodeRelative(value uint8) int {
	v := int(value & 0x7f)
	if v >= 64 {
		return v - 128
	}
	return v
}

// Translate converts an incoming MIDI message into a device event. Pads
// outside the cols×rows surface, zero deltas and other message kinds are
// reported as not ok.
func Translate(msg midi.Message, cols, rows int, rot device.Rotation) (device.Event, bool) {
	var ch, key, vel, controller, value uint8

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return gridEvent(device.ButtonDown, key, cols, rows, rot)

	case msg.GetNoteEnd(&ch, &key):
		return gridEvent(device.ButtonUp, key, cols, rows, rot)

	case msg.GetControlChange(&ch, &controller, &value):
		delta := DecodeRelative(value)
		if delta == 0 {
			return device.Event{}, false
		}
		return device.Event{
			Type:    device.EncoderDelta,
			Encoder: device.EncoderEvent{Number: int(controller), Delta: delta},
		}, true
	}
	return device.Event{}, false
}

func gridEvent(t device.EventType, key uint8, cols, rows int, rot device.Rotation) (device.Event, bool) {
	x, y := KeyToXY(key)
	if x >= cols || y >= rows {
		return device.Event{}, false
	}
	lx, ly := rot.Transform(x, y, cols, rows)
	return device.Event{Type: t, Grid: device.GridEvent{X: lx, Y: ly}}, true
}

// logicalSize returns the surface dimensions as seen through rot.
func logicalSize(cols, rows int, rot device.Rotation) (int, int) {
	if rot == device.Rotate90 || rot == device.Rotate270 {
		return rows, cols
	}
	return cols, rows
}

// physical maps logical coordinates back to the pad that shows them.
func physical(x, y, cols, rows int, rot device.Rotation) (int, int, bool) {
	lc, lr := logicalSize(cols, rows, rot)
	if x < 0 || y < 0 || x >= lc || y >= lr {
		return 0, 0, false
	}
	px, py := rot.Inverse().Transform(x, y, lc, lr)
	return px, py, true
}
