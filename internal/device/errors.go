package device

import "errors"

// Domain errors for the device package.
var (
	// ErrInvalidRotation is returned when a rotation is not one of 0, 90, 180, 270.
	ErrInvalidRotation = errors.New("device: invalid rotation")

	// ErrOutOfRange is returned when a grid coordinate lies outside the device.
	ErrOutOfRange = errors.New("device: coordinate out of range")

	// ErrClosed is returned when a control operation is attempted on a closed device.
	ErrClosed = errors.New("device: closed")
)
