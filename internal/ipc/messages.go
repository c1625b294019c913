package ipc

import (
	"fmt"
	"strconv"
)

// MessageType is the wire tag that precedes every payload.
type MessageType uint16

// Message tags. Values are part of the wire contract and must never be
// renumbered; 0 is reserved.
const (
	TypeDeviceInfo          MessageType = 1
	TypeDeviceReady         MessageType = 2
	TypeDeviceDisconnection MessageType = 3
	TypeOSCPortChange       MessageType = 4
)

// String returns the tag name used in logs.
func (t MessageType) String() string {
	switch t {
	case TypeDeviceInfo:
		return "device_info"
	case TypeDeviceReady:
		return "device_ready"
	case TypeDeviceDisconnection:
		return "device_disconnection"
	case TypeOSCPortChange:
		return "osc_port_change"
	default:
		return "type(" + strconv.Itoa(int(t)) + ")"
	}
}

// Message is one control-channel message. The set of implementations is
// closed: only the variants in this package satisfy it.
type Message interface {
	Type() MessageType
	isMessage()
}

// DeviceInfo identifies the device served by the bridge.
type DeviceInfo struct {
	Serial       string `cbor:"1,keyasint"`
	FriendlyName string `cbor:"2,keyasint"`
}

// OSCPortChange reports the UDP port the bridge's OSC server listens on.
type OSCPortChange struct {
	Port uint16 `cbor:"1,keyasint"`
}

// DeviceReady reports that the session is set up and about to serve events.
type DeviceReady struct{}

// DeviceDisconnection reports that the session has ended.
type DeviceDisconnection struct{}

func (DeviceInfo) Type() MessageType          { return TypeDeviceInfo }
func (OSCPortChange) Type() MessageType       { return TypeOSCPortChange }
func (DeviceReady) Type() MessageType         { return TypeDeviceReady }
func (DeviceDisconnection) Type() MessageType { return TypeDeviceDisconnection }

func (DeviceInfo) isMessage()          {}
func (OSCPortChange) isMessage()       {}
func (DeviceReady) isMessage()         {}
func (DeviceDisconnection) isMessage() {}

// NewSimple returns the payload-less message for t.
func NewSimple(t MessageType) (Message, error) {
	switch t {
	case TypeDeviceReady:
		return DeviceReady{}, nil
	case TypeDeviceDisconnection:
		return DeviceDisconnection{}, nil
	case TypeDeviceInfo, TypeOSCPortChange:
		return nil, fmt.Errorf("%w: %s", ErrNotSimple, t)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
}
