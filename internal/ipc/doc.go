// Package ipc implements the control-channel protocol spoken between a
// bridge process and its supervising parent over a byte-stream pipe
// (normally the child's stdin/stdout).
//
// # Messages
//
// Message is a closed sum type. Each variant has a stable tag:
//
//	1 DeviceInfo           serial, friendly name
//	2 DeviceReady          (no payload)
//	3 DeviceDisconnection  (no payload)
//	4 OSCPortChange        port
//
// # Framing
//
// Every message travels as one frame:
//
//	┌────────────┬────────────┬──────────────────────────┐
//	│ size (u16) │ type (u16) │ body (CBOR, may be empty) │
//	└────────────┴────────────┴──────────────────────────┘
//
// Integers are big-endian. size counts type + body, so it is never below 2.
// Frames never exceed MaxFrameSize, which keeps a single write within the
// atomic pipe-write limit; a reader never observes a partial frame from a
// correct writer.
//
// Bodies use CBOR core deterministic encoding (RFC 8949 §4.2) via
// github.com/fxamacker/cbor/v2, so the same message always encodes to the
// same bytes.
//
// # Errors
//
// Decoding failures wrap ErrFraming together with a specific cause
// (ErrTruncated, ErrInvalidSize, ErrUnknownType, ErrPayload). A stream that
// ends cleanly between frames yields io.EOF.
package ipc
