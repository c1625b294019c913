package device

// Device is an opened grid/control-surface device.
//
// Control operations may be called from the session goroutine only. Events
// returns a channel that is closed when the device is removed or closed.
type Device interface {
	Registrar

	// Serial is the stable identifier used as the configuration key.
	Serial() string

	// FriendlyName is the human-readable model name.
	FriendlyName() string

	// Size returns the grid dimensions as columns and rows.
	Size() (cols, rows int)

	// Dispatch delivers ev to the handler registered for its type.
	Dispatch(ev Event) bool

	// Events streams raw input events until the device goes away.
	Events() <-chan Event

	// SetRotation changes the orientation applied to coordinates.
	SetRotation(r Rotation) error

	// LEDAll sets every output on or off.
	LEDAll(on bool) error

	// LEDSet sets one output addressed in logical (rotated) coordinates.
	LEDSet(x, y int, on bool) error
}
