package main

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/gridosc/internal/devconfig"
	"github.com/nerrad567/gridosc/internal/device"
	"github.com/nerrad567/gridosc/internal/infrastructure/config"
	"github.com/nerrad567/gridosc/internal/infrastructure/logging"
	"github.com/nerrad567/gridosc/internal/infrastructure/mqtt"
	"github.com/nerrad567/gridosc/internal/relay"
	"github.com/nerrad567/gridosc/internal/session"
)

type fakeSink struct {
	messages []string
	statuses []mqtt.Status
}

func (f *fakeSink) Message(serial, path string, _ []int32) error {
	f.messages = append(f.messages, serial+" "+path)
	return nil
}

func (f *fakeSink) Status(st mqtt.Status) error {
	f.statuses = append(f.statuses, st)
	return nil
}

func TestMQTTMirror(t *testing.T) {
	sink := &fakeSink{}
	m := mqttMirror{sink: sink, log: logging.Discard()}

	m.Message("m1", relay.Message{Path: "/monome/grid/key", Args: []int32{1, 2, 1}})
	m.Status(session.Status{
		Serial:       "m1",
		FriendlyName: "monome 64",
		State:        session.StateActive,
		ServerPort:   12001,
		Record:       devconfig.Record{Prefix: "/monome", Host: "127.0.0.1", Port: 8000, Rotation: device.Rotate180},
	})

	if len(sink.messages) != 1 || sink.messages[0] != "m1 /monome/grid/key" {
		t.Errorf("messages = %v", sink.messages)
	}
	want := mqtt.Status{
		Serial:       "m1",
		FriendlyName: "monome 64",
		State:        "active",
		ServerPort:   12001,
		Prefix:       "/monome",
		Host:         "127.0.0.1",
		Port:         8000,
		Rotation:     180,
	}
	if len(sink.statuses) != 1 || sink.statuses[0] != want {
		t.Errorf("statuses = %+v, want %+v", sink.statuses, want)
	}
}

type fakeWriter struct {
	sessions []string
	inputs   []map[string]any
	stats    map[string]uint64
}

func (f *fakeWriter) WriteSession(serial, state string, _ map[string]any) {
	f.sessions = append(f.sessions, serial+" "+state)
}

func (f *fakeWriter) WriteInput(_, _ string, fields map[string]any) {
	f.inputs = append(f.inputs, fields)
}

func (f *fakeWriter) WriteStats(_ string, counters map[string]uint64) { f.stats = counters }

func TestInfluxTelemetry(t *testing.T) {
	w := &fakeWriter{}
	tel := influxTelemetry{w: w}

	tel.Transition(session.Status{Serial: "m1", State: session.StateDraining})
	tel.Input("m1", device.Event{Type: device.ButtonDown, Grid: device.GridEvent{X: 4, Y: 2}})
	tel.Input("m1", device.Event{Type: device.EncoderDelta, Encoder: device.EncoderEvent{Number: 1, Delta: -3}})
	tel.Counters("m1", map[string]uint64{"osc_sent": 7})

	if len(w.sessions) != 1 || w.sessions[0] != "m1 draining" {
		t.Errorf("sessions = %v", w.sessions)
	}
	if len(w.inputs) != 2 || w.inputs[0]["x"] != 4 || w.inputs[1]["delta"] != -3 {
		t.Errorf("inputs = %v", w.inputs)
	}
	if w.stats["osc_sent"] != 7 {
		t.Errorf("stats = %v", w.stats)
	}
}

func TestConnectDisabled(t *testing.T) {
	log := logging.Discard()

	mirror, closeMirror := connectMirror(context.Background(), config.MQTTConfig{Enabled: false}, "m1", log)
	defer closeMirror()
	if mirror != nil {
		t.Errorf("connectMirror() = %v, want nil when disabled", mirror)
	}

	telemetry, closeTelemetry := connectTelemetry(context.Background(), config.InfluxDBConfig{Enabled: false}, log)
	defer closeTelemetry()
	if telemetry != nil {
		t.Errorf("connectTelemetry() = %v, want nil when disabled", telemetry)
	}
}

type fakeHealth struct {
	err     error
	checked bool
}

func (f *fakeHealth) HealthCheck(ctx context.Context) error {
	f.checked = true
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	return f.err
}

func TestCheckHealth(t *testing.T) {
	log := logging.Discard()

	ok := &fakeHealth{}
	if !checkHealth(context.Background(), "database", ok, log) || !ok.checked {
		t.Error("checkHealth() = false for a healthy client")
	}

	bad := &fakeHealth{err: errors.New("not connected")}
	if checkHealth(context.Background(), "MQTT", bad, log) {
		t.Error("checkHealth() = true for a failing client")
	}
}
