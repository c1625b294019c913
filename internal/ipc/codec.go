package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Frame layout constants.
const (
	// sizeFieldLen is the length of the leading size field.
	sizeFieldLen = 2

	// typeFieldLen is the length of the message tag.
	typeFieldLen = 2

	// HeaderLen is the size + type prefix of every frame.
	HeaderLen = sizeFieldLen + typeFieldLen

	// MaxFrameSize bounds a complete frame so one write stays within the
	// atomic pipe-write limit (PIPE_BUF is at least 4096 on Linux).
	MaxFrameSize = 4096

	// MaxPayload is the largest body that fits in a frame.
	MaxPayload = MaxFrameSize - HeaderLen
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ipc: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		MaxArrayElements: 16,
		MaxMapPairs:      16,
	}.DecMode()
	if err != nil {
		panic("ipc: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes m into one complete frame.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("ipc: encode nil message")
	}

	body, err := encodeBody(m)
	if err != nil {
		return nil, fmt.Errorf("ipc: encoding %s: %w", m.Type(), err)
	}
	if len(body) > MaxPayload {
		return nil, fmt.Errorf("%w: %s body is %d bytes, limit %d", ErrTooLarge, m.Type(), len(body), MaxPayload)
	}

	frame := make([]byte, HeaderLen+len(body))
	binary.BigEndian.PutUint16(frame[0:2], uint16(typeFieldLen+len(body))) //nolint:gosec // bounded by MaxPayload
	binary.BigEndian.PutUint16(frame[2:4], uint16(m.Type()))
	copy(frame[HeaderLen:], body)
	return frame, nil
}

// encodeBody produces the CBOR body for m; payload-less variants have none.
func encodeBody(m Message) ([]byte, error) {
	switch msg := m.(type) {
	case DeviceInfo:
		// Port names are arbitrary OS bytes; CBOR text must be valid UTF-8.
		msg.Serial = strings.ToValidUTF8(msg.Serial, "\uFFFD")
		msg.FriendlyName = strings.ToValidUTF8(msg.FriendlyName, "\uFFFD")
		return encMode.Marshal(msg)
	case OSCPortChange:
		return encMode.Marshal(msg)
	case DeviceReady, DeviceDisconnection:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
}

// WriteMessage encodes m and writes it with a single Write call.
func WriteMessage(w io.Writer, m Message) error {
	frame, err := Encode(m)
	if err != nil {
		return err
	}
	n, err := w.Write(frame)
	if err != nil {
		return fmt.Errorf("ipc: writing %s: %w", m.Type(), err)
	}
	if n != len(frame) {
		return fmt.Errorf("ipc: writing %s: %w", m.Type(), io.ErrShortWrite)
	}
	return nil
}

// ReadMessage reads exactly one frame from r and decodes it.
//
// It returns io.EOF when r is exhausted before the first byte of a frame.
// Every other failure wraps ErrFraming.
func ReadMessage(r io.Reader) (Message, error) {
	var sizeBuf [sizeFieldLen]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, framingError(ErrTruncated, "reading size: %v", err)
	}

	size := int(binary.BigEndian.Uint16(sizeBuf[:]))
	if size < typeFieldLen || size > MaxFrameSize-sizeFieldLen {
		return nil, framingError(ErrInvalidSize, "size %d", size)
	}

	rest := make([]byte, size)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, framingError(ErrTruncated, "want %d bytes: %v", size, err)
	}

	return Decode(MessageType(binary.BigEndian.Uint16(rest[:typeFieldLen])), rest[typeFieldLen:])
}

// Decode builds the variant for tag t from its body.
func Decode(t MessageType, body []byte) (Message, error) {
	switch t {
	case TypeDeviceInfo:
		var msg DeviceInfo
		if err := decodeBody(body, &msg); err != nil {
			return nil, err
		}
		return msg, nil

	case TypeOSCPortChange:
		var msg OSCPortChange
		if err := decodeBody(body, &msg); err != nil {
			return nil, err
		}
		return msg, nil

	case TypeDeviceReady:
		if len(body) != 0 {
			return nil, framingError(ErrPayload, "%s carries %d unexpected bytes", t, len(body))
		}
		return DeviceReady{}, nil

	case TypeDeviceDisconnection:
		if len(body) != 0 {
			return nil, framingError(ErrPayload, "%s carries %d unexpected bytes", t, len(body))
		}
		return DeviceDisconnection{}, nil

	default:
		return nil, framingError(ErrUnknownType, "tag %d", uint16(t))
	}
}

func decodeBody(body []byte, v any) error {
	if len(body) == 0 {
		return framingError(ErrPayload, "empty body")
	}
	if err := decMode.Unmarshal(body, v); err != nil {
		return framingError(ErrPayload, "%v", err)
	}
	return nil
}

func framingError(cause error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrFraming, cause, fmt.Sprintf(format, args...))
}

// Decoder reads a sequence of messages from a stream.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next returns the next message. See ReadMessage for error semantics.
func (d *Decoder) Next() (Message, error) {
	return ReadMessage(d.r)
}
