package main

import (
	"errors"
	"io"
	"sync"

	"github.com/nerrad567/gridosc/internal/infrastructure/logging"
	"github.com/nerrad567/gridosc/internal/ipc"
)

// bridgeStatus is what the supervisor knows about its bridge.
type bridgeStatus struct {
	Serial       string
	FriendlyName string
	Port         uint16
	Ready        bool
	Sessions     int
}

// tracker accumulates control-channel messages. It is written by the
// stdout reader and read by the main goroutine.
type tracker struct {
	mu     sync.Mutex
	status bridgeStatus
}

func newTracker() *tracker {
	return &tracker{}
}

// Apply updates the status with one message.
func (t *tracker) Apply(msg ipc.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch m := msg.(type) {
	case ipc.DeviceInfo:
		t.status.Serial = m.Serial
		t.status.FriendlyName = m.FriendlyName
	case ipc.OSCPortChange:
		t.status.Port = m.Port
	case ipc.DeviceReady:
		t.status.Ready = true
		t.status.Sessions++
	case ipc.DeviceDisconnection:
		t.status.Ready = false
	}
}

// Reset forgets the per-process fields after the bridge exits. The
// session count is kept.
func (t *tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = bridgeStatus{Serial: t.status.Serial, Sessions: t.status.Sessions}
}

// Snapshot returns a copy of the current status.
func (t *tracker) Snapshot() bridgeStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// readControl decodes messages from r until EOF. A framing error ends the
// reader and is returned; the bridge keeps running.
func readControl(r io.Reader, t *tracker, log *logging.Logger) error {
	dec := ipc.NewDecoder(r)
	for {
		msg, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		t.Apply(msg)
		switch m := msg.(type) {
		case ipc.DeviceInfo:
			log.Info("bridge device", "serial", m.Serial, "name", m.FriendlyName)
		case ipc.OSCPortChange:
			log.Info("bridge osc port", "port", m.Port)
		default:
			log.Info("bridge event", "type", msg.Type().String())
		}
	}
}
