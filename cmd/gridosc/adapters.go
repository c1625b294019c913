package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gridosc/internal/device"
	"github.com/nerrad567/gridosc/internal/infrastructure/config"
	"github.com/nerrad567/gridosc/internal/infrastructure/influxdb"
	"github.com/nerrad567/gridosc/internal/infrastructure/logging"
	"github.com/nerrad567/gridosc/internal/infrastructure/mqtt"
	"github.com/nerrad567/gridosc/internal/relay"
	"github.com/nerrad567/gridosc/internal/session"
)

// mirrorSink is the part of *mqtt.Mirror the session mirror uses.
type mirrorSink interface {
	Message(serial, path string, args []int32) error
	Status(st mqtt.Status) error
}

// mqttMirror adapts an mqtt.Mirror to session.Mirror.
type mqttMirror struct {
	sink mirrorSink
	log  *logging.Logger
}

func (a mqttMirror) Message(serial string, m relay.Message) {
	if err := a.sink.Message(serial, m.Path, m.Args); err != nil {
		a.log.Debug("mqtt mirror rejected message", "path", m.Path, "error", err)
	}
}

func (a mqttMirror) Status(st session.Status) {
	if err := a.sink.Status(statusDocument(st)); err != nil {
		a.log.Debug("mqtt mirror rejected status", "state", st.State.String(), "error", err)
	}
}

func statusDocument(st session.Status) mqtt.Status {
	return mqtt.Status{
		Serial:       st.Serial,
		FriendlyName: st.FriendlyName,
		State:        st.State.String(),
		ServerPort:   st.ServerPort,
		Prefix:       st.Record.Prefix,
		Host:         st.Record.Host,
		Port:         st.Record.Port,
		Rotation:     int(st.Record.Rotation),
	}
}

const healthCheckTimeout = 5 * time.Second

// healthChecker is implemented by the database, MQTT and InfluxDB clients.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// checkHealth runs one health check and logs a failure. It reports whether
// the check passed.
func checkHealth(ctx context.Context, name string, hc healthChecker, log *logging.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := hc.HealthCheck(ctx); err != nil {
		log.Warn(name+" health check failed", "error", err)
		return false
	}
	log.Debug(name + " healthy")
	return true
}

// connectMirror connects to the broker when enabled. Failures are logged
// and leave the bridge running without a mirror.
func connectMirror(ctx context.Context, cfg config.MQTTConfig, serial string, log *logging.Logger) (session.Mirror, func()) {
	if !cfg.Enabled {
		log.Info("MQTT mirror disabled")
		return nil, func() {}
	}

	client, err := mqtt.Connect(cfg, serial)
	if err != nil {
		log.Warn("MQTT unavailable, continuing without mirror", "error", err)
		return nil, func() {}
	}
	client.SetOnConnect(func() { log.Info("MQTT reconnected") })
	client.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"topic_root", cfg.TopicRoot,
	)
	checkHealth(ctx, "MQTT", client, log)

	mirror := mqtt.NewMirror(client, cfg.TopicRoot, byte(cfg.QoS), log) //nolint:gosec // qos validated to 0-2
	return mqttMirror{sink: mirror, log: log}, func() {
		if err := mirror.Close(); err != nil {
			log.Error("error closing MQTT mirror", "error", err)
		}
		published, dropped, failed := mirror.Stats()
		log.Info("MQTT mirror closed", "published", published, "dropped", dropped, "failed", failed)
		if err := client.Close(); err != nil {
			log.Error("error closing MQTT", "error", err)
		}
	}
}

// pointWriter is the part of *influxdb.Client the telemetry adapter uses.
type pointWriter interface {
	WriteSession(serial, state string, fields map[string]any)
	WriteInput(serial, event string, fields map[string]any)
	WriteStats(serial string, counters map[string]uint64)
}

// influxTelemetry adapts an influxdb.Client to session.Telemetry.
type influxTelemetry struct {
	w pointWriter
}

func (t influxTelemetry) Transition(st session.Status) {
	t.w.WriteSession(st.Serial, st.State.String(), map[string]any{"server_port": st.ServerPort})
}

func (t influxTelemetry) Input(serial string, ev device.Event) {
	t.w.WriteInput(serial, ev.Type.String(), inputFields(ev))
}

func (t influxTelemetry) Counters(serial string, counters map[string]uint64) {
	t.w.WriteStats(serial, counters)
}

func inputFields(ev device.Event) map[string]any {
	switch ev.Type {
	case device.ButtonDown, device.ButtonUp:
		return map[string]any{"x": ev.Grid.X, "y": ev.Grid.Y}
	case device.EncoderDelta, device.EncoderKeyDown, device.EncoderKeyUp:
		return map[string]any{"encoder": ev.Encoder.Number, "delta": ev.Encoder.Delta}
	case device.Tilt:
		return map[string]any{"sensor": ev.Tilt.Sensor, "x": ev.Tilt.X, "y": ev.Tilt.Y, "z": ev.Tilt.Z}
	}
	return nil
}

// connectTelemetry connects to InfluxDB when enabled. Failures are logged
// and leave the bridge running without telemetry.
func connectTelemetry(ctx context.Context, cfg config.InfluxDBConfig, log *logging.Logger) (session.Telemetry, func()) {
	if !cfg.Enabled {
		log.Info("InfluxDB disabled")
		return nil, func() {}
	}

	client, err := influxdb.Connect(cfg)
	if err != nil {
		log.Warn("InfluxDB unavailable, continuing without telemetry", "error", err)
		return nil, func() {}
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)
	checkHealth(ctx, "InfluxDB", client, log)

	return influxTelemetry{w: client}, func() {
		if err := client.Close(); err != nil {
			log.Error("error closing InfluxDB", "error", err)
		}
	}
}
