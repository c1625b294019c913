package device

import (
	"fmt"
	"strconv"
)

// EventType identifies the kind of input a device reported.
type EventType int

// Event types. The zero value is deliberately invalid.
const (
	ButtonUp EventType = iota + 1
	ButtonDown
	EncoderDelta
	EncoderKeyUp
	EncoderKeyDown
	Tilt
)

// numEventTypes bounds the handler table; keep it after the last event type.
const numEventTypes = int(Tilt) + 1

// EventTypes returns every valid event type in declaration order.
func EventTypes() []EventType {
	return []EventType{ButtonUp, ButtonDown, EncoderDelta, EncoderKeyUp, EncoderKeyDown, Tilt}
}

// String returns the lower-case name used in logs and telemetry tags.
func (t EventType) String() string {
	switch t {
	case ButtonUp:
		return "button_up"
	case ButtonDown:
		return "button_down"
	case EncoderDelta:
		return "encoder_delta"
	case EncoderKeyUp:
		return "encoder_key_up"
	case EncoderKeyDown:
		return "encoder_key_down"
	case Tilt:
		return "tilt"
	default:
		return "event(" + strconv.Itoa(int(t)) + ")"
	}
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t >= ButtonUp && t <= Tilt
}

// KeyState reports whether t is a key-style event and, if so, whether the
// key is pressed. The switch is exhaustive: every event type is listed, so a
// new type has to be classified here before it can be relayed.
func (t EventType) KeyState() (pressed bool, isKey bool) {
	switch t {
	case ButtonDown, EncoderKeyDown:
		return true, true
	case ButtonUp, EncoderKeyUp:
		return false, true
	case EncoderDelta, Tilt:
		return false, false
	default:
		return false, false
	}
}

// GridEvent holds the coordinates of a button event.
type GridEvent struct {
	X int
	Y int
}

// EncoderEvent holds the encoder index and, for EncoderDelta, the signed delta.
type EncoderEvent struct {
	Number int
	Delta  int
}

// TiltEvent holds one tilt sensor sample.
type TiltEvent struct {
	Sensor int
	X      int
	Y      int
	Z      int
}

// Event is one input occurrence reported by a device. Only the field group
// matching Type is meaningful.
type Event struct {
	Type    EventType
	Grid    GridEvent
	Encoder EncoderEvent
	Tilt    TiltEvent
}

// Rotation is the device orientation in degrees.
type Rotation int

// Supported rotations.
const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Valid reports whether r is one of the four supported orientations.
func (r Rotation) Valid() bool {
	switch r {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return true
	default:
		return false
	}
}

// ParseRotation validates a rotation given in degrees.
func ParseRotation(degrees int) (Rotation, error) {
	r := Rotation(degrees)
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRotation, degrees)
	}
	return r, nil
}

// Transform maps physical coordinates on a cols×rows surface to logical
// coordinates for rotation r. Invert with r.Inverse().Transform on the
// rotated dimensions.
func (r Rotation) Transform(x, y, cols, rows int) (int, int) {
	switch r {
	case Rotate90:
		return y, cols - 1 - x
	case Rotate180:
		return cols - 1 - x, rows - 1 - y
	case Rotate270:
		return rows - 1 - y, x
	default:
		return x, y
	}
}

// Inverse returns the rotation that undoes r.
func (r Rotation) Inverse() Rotation {
	switch r {
	case Rotate90:
		return Rotate270
	case Rotate270:
		return Rotate90
	default:
		return r
	}
}
