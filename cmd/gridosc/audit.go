package main

import (
	"github.com/nerrad567/gridosc/internal/audit"
	"github.com/nerrad567/gridosc/internal/device"
	"github.com/nerrad567/gridosc/internal/infrastructure/logging"
	"github.com/nerrad567/gridosc/internal/session"
)

// historySink is the part of *audit.Recorder the telemetry adapter uses.
type historySink interface {
	Record(e audit.Entry) error
}

// auditTelemetry records session start, end and failure in the history table.
type auditTelemetry struct {
	sink historySink
	log  *logging.Logger
}

// connectHistory starts a recorder on repo and returns it as telemetry
// with a func that flushes and stops it.
func connectHistory(repo audit.Repository, log *logging.Logger) (session.Telemetry, func()) {
	rec := audit.NewRecorder(repo, log)
	return auditTelemetry{sink: rec, log: log}, func() {
		if err := rec.Close(); err != nil {
			log.Error("error closing session history", "error", err)
		}
		written, dropped, failed := rec.Stats()
		log.Debug("session history closed", "written", written, "dropped", dropped, "failed", failed)
	}
}

func (a auditTelemetry) Transition(st session.Status) {
	switch st.State {
	case session.StateActive:
		a.record(st.Serial, audit.ActionSessionStart, map[string]any{
			"friendly_name": st.FriendlyName,
			"server_port":   st.ServerPort,
			"host":          st.Record.Host,
			"port":          st.Record.Port,
		})
	case session.StateError:
		a.record(st.Serial, audit.ActionSessionError, map[string]any{"server_port": st.ServerPort})
	default:
	}
}

func (a auditTelemetry) Input(string, device.Event) {}

func (a auditTelemetry) Counters(serial string, counters map[string]uint64) {
	details := make(map[string]any, len(counters))
	for k, v := range counters {
		details[k] = v
	}
	a.record(serial, audit.ActionSessionEnd, details)
}

func (a auditTelemetry) record(serial, action string, details map[string]any) {
	if err := a.sink.Record(audit.Entry{Serial: serial, Action: action, Details: details}); err != nil {
		a.log.Warn("failed to queue session history", "action", action, "error", err)
	}
}

// telemetryFanout forwards every call to each sink in order.
type telemetryFanout []session.Telemetry

// fanout combines sinks, skipping nil ones. It returns nil when none remain.
func fanout(sinks ...session.Telemetry) session.Telemetry {
	var out telemetryFanout
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

func (f telemetryFanout) Transition(st session.Status) {
	for _, s := range f {
		s.Transition(st)
	}
}

func (f telemetryFanout) Input(serial string, ev device.Event) {
	for _, s := range f {
		s.Input(serial, ev)
	}
}

func (f telemetryFanout) Counters(serial string, counters map[string]uint64) {
	for _, s := range f {
		s.Counters(serial, counters)
	}
}
