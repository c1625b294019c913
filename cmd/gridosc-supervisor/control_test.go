package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nerrad567/gridosc/internal/infrastructure/logging"
	"github.com/nerrad567/gridosc/internal/ipc"
)

func encodeAll(t *testing.T, msgs ...ipc.Message) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, m := range msgs {
		if err := ipc.WriteMessage(&buf, m); err != nil {
			t.Fatalf("WriteMessage(%s) error = %v", m.Type(), err)
		}
	}
	return &buf
}

func TestReadControl_SessionLifecycle(t *testing.T) {
	buf := encodeAll(t,
		ipc.DeviceInfo{Serial: "m1000001", FriendlyName: "monome 64"},
		ipc.OSCPortChange{Port: 14656},
		ipc.DeviceReady{},
	)

	tr := newTracker()
	if err := readControl(buf, tr, logging.Discard()); err != nil {
		t.Fatalf("readControl() error = %v", err)
	}

	want := bridgeStatus{Serial: "m1000001", FriendlyName: "monome 64", Port: 14656, Ready: true, Sessions: 1}
	if got := tr.Snapshot(); got != want {
		t.Errorf("status = %+v, want %+v", got, want)
	}

	if err := readControl(encodeAll(t, ipc.DeviceDisconnection{}), tr, logging.Discard()); err != nil {
		t.Fatalf("readControl() error = %v", err)
	}
	if tr.Snapshot().Ready {
		t.Error("Ready still set after disconnection")
	}

	tr.Reset()
	if got := tr.Snapshot(); got != (bridgeStatus{Serial: "m1000001", Sessions: 1}) {
		t.Errorf("status after Reset = %+v", got)
	}
}

func TestReadControl_FramingErrorStopsReader(t *testing.T) {
	buf := encodeAll(t, ipc.DeviceReady{})
	buf.Write([]byte{0x00, 0x01}) // size too small to hold a type tag

	tr := newTracker()
	err := readControl(buf, tr, logging.Discard())
	if !errors.Is(err, ipc.ErrFraming) {
		t.Fatalf("readControl() error = %v, want ErrFraming", err)
	}
	if !tr.Snapshot().Ready {
		t.Error("message before the bad frame was not applied")
	}
}

func TestReadControl_EmptyStream(t *testing.T) {
	if err := readControl(bytes.NewReader(nil), newTracker(), logging.Discard()); err != nil {
		t.Errorf("readControl(empty) error = %v", err)
	}
}
