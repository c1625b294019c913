package ipc

import "errors"

// Control-channel errors. Decode errors always wrap ErrFraming.
var (
	// ErrFraming is the umbrella for every malformed-input condition.
	ErrFraming = errors.New("ipc: framing error")

	// ErrTruncated is returned when the stream ends inside a frame.
	ErrTruncated = errors.New("ipc: truncated frame")

	// ErrInvalidSize is returned when the size field is below the type
	// field length or above MaxFrameSize.
	ErrInvalidSize = errors.New("ipc: invalid frame size")

	// ErrUnknownType is returned for a tag with no known variant.
	ErrUnknownType = errors.New("ipc: unknown message type")

	// ErrPayload is returned when a body does not match its variant.
	ErrPayload = errors.New("ipc: invalid payload")

	// ErrTooLarge is returned by Encode when a message does not fit in one frame.
	ErrTooLarge = errors.New("ipc: message too large")

	// ErrNotSimple is returned by NewSimple for variants that carry a payload.
	ErrNotSimple = errors.New("ipc: message type carries a payload")
)
