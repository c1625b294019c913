package relay

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nerrad567/gridosc/internal/device"
)

type fakeOutlet struct {
	prefix string
	sent   []Message
	err    error
}

func (f *fakeOutlet) Prefix() string { return f.prefix }

func (f *fakeOutlet) Send(m Message) error {
	f.sent = append(f.sent, m)
	return f.err
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		ev   device.Event
		want Message
	}{
		{
			name: "button down",
			ev:   device.Event{Type: device.ButtonDown, Grid: device.GridEvent{X: 3, Y: 5}},
			want: Message{Path: "/monome/grid/key", Args: []int32{3, 5, 1}},
		},
		{
			name: "button up",
			ev:   device.Event{Type: device.ButtonUp, Grid: device.GridEvent{X: 3, Y: 5}},
			want: Message{Path: "/monome/grid/key", Args: []int32{3, 5, 0}},
		},
		{
			name: "encoder delta",
			ev:   device.Event{Type: device.EncoderDelta, Encoder: device.EncoderEvent{Number: 2, Delta: -3}},
			want: Message{Path: "/monome/enc/delta", Args: []int32{2, -3}},
		},
		{
			name: "encoder key down",
			ev:   device.Event{Type: device.EncoderKeyDown, Encoder: device.EncoderEvent{Number: 1}},
			want: Message{Path: "/monome/enc/key", Args: []int32{1, 1}},
		},
		{
			name: "encoder key up",
			ev:   device.Event{Type: device.EncoderKeyUp, Encoder: device.EncoderEvent{Number: 1}},
			want: Message{Path: "/monome/enc/key", Args: []int32{1, 0}},
		},
		{
			name: "tilt",
			ev:   device.Event{Type: device.Tilt, Tilt: device.TiltEvent{Sensor: 0, X: 128, Y: -4, Z: 7}},
			want: Message{Path: "/monome/tilt", Args: []int32{0, 128, -4, 7}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Translate("/monome", tt.ev)
			if !ok {
				t.Fatal("Translate() ok = false, want true")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Translate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTranslate_EveryEventType(t *testing.T) {
	arity := map[string]int{
		"/p/grid/key":  3,
		"/p/enc/delta": 2,
		"/p/enc/key":   2,
		"/p/tilt":      4,
	}

	for _, et := range device.EventTypes() {
		t.Run(et.String(), func(t *testing.T) {
			msg, ok := Translate("/p", device.Event{Type: et})
			if !ok {
				t.Fatalf("no mapping for %s", et)
			}
			want, known := arity[msg.Path]
			if !known {
				t.Fatalf("unexpected path %q", msg.Path)
			}
			if len(msg.Args) != want {
				t.Errorf("len(Args) = %d, want %d", len(msg.Args), want)
			}

			pressed, isKey := et.KeyState()
			if isKey {
				last := msg.Args[len(msg.Args)-1]
				if (last == 1) != pressed {
					t.Errorf("pressed arg = %d, KeyState pressed = %v", last, pressed)
				}
			}
		})
	}
}

func TestTranslate_UnknownType(t *testing.T) {
	if _, ok := Translate("/p", device.Event{Type: device.EventType(99)}); ok {
		t.Error("Translate() ok = true for unknown type")
	}
	if _, ok := Translate("/p", device.Event{}); ok {
		t.Error("Translate() ok = true for zero type")
	}
}

func TestRegister_UsesCurrentPrefix(t *testing.T) {
	var h device.Handlers
	out := &fakeOutlet{prefix: "/monome"}
	Register(&h, out)

	ev := device.Event{Type: device.ButtonDown, Grid: device.GridEvent{X: 1, Y: 2}}
	if !h.Dispatch(ev) {
		t.Fatal("Dispatch() = false, handler not registered")
	}

	out.prefix = "/box"
	h.Dispatch(ev)

	if len(out.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(out.sent))
	}
	if out.sent[0].Path != "/monome/grid/key" {
		t.Errorf("first path = %q, want /monome/grid/key", out.sent[0].Path)
	}
	if out.sent[1].Path != "/box/grid/key" {
		t.Errorf("second path = %q, want /box/grid/key", out.sent[1].Path)
	}
}

func TestRegister_AllTypesHandled(t *testing.T) {
	var h device.Handlers
	out := &fakeOutlet{prefix: "/m"}
	Register(&h, out)

	for _, et := range device.EventTypes() {
		if !h.Dispatch(device.Event{Type: et}) {
			t.Errorf("no handler for %s", et)
		}
	}
	if len(out.sent) != len(device.EventTypes()) {
		t.Errorf("sent %d messages, want %d", len(out.sent), len(device.EventTypes()))
	}
}

func TestRegister_SendErrorDropped(t *testing.T) {
	var h device.Handlers
	out := &fakeOutlet{prefix: "/m", err: errors.New("unreachable")}
	Register(&h, out)

	h.Dispatch(device.Event{Type: device.Tilt})
	h.Dispatch(device.Event{Type: device.Tilt})

	if len(out.sent) != 2 {
		t.Errorf("sent %d messages, want 2 (no retry, no stop)", len(out.sent))
	}
}

func TestConnectionStatus(t *testing.T) {
	out := &fakeOutlet{prefix: "/monome"}

	ConnectionStatus(out, true)
	ConnectionStatus(out, false)

	want := []Message{{Path: "/sys/connect"}, {Path: "/sys/disconnect"}}
	if !reflect.DeepEqual(out.sent, want) {
		t.Errorf("sent = %+v, want %+v", out.sent, want)
	}
}

func TestMessage_OSC(t *testing.T) {
	m := Message{Path: "/monome/grid/key", Args: []int32{3, 5, 1}}.OSC()

	if m.Address != "/monome/grid/key" {
		t.Errorf("Address = %q", m.Address)
	}
	if len(m.Arguments) != 3 {
		t.Fatalf("len(Arguments) = %d, want 3", len(m.Arguments))
	}
	for i, want := range []int32{3, 5, 1} {
		if got, ok := m.Arguments[i].(int32); !ok || got != want {
			t.Errorf("Arguments[%d] = %v, want int32 %d", i, m.Arguments[i], want)
		}
	}
}
