package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementSession = "gridosc_session"
	MeasurementInput   = "gridosc_input"
	MeasurementStats   = "gridosc_stats"
)

// SessionPoint builds a lifecycle point for serial entering state.
func SessionPoint(serial, state string, fields map[string]any, ts time.Time) *write.Point {
	f := map[string]any{"transition": 1}
	for k, v := range fields {
		f[k] = v
	}
	return write.NewPoint(MeasurementSession,
		map[string]string{"serial": serial, "state": state},
		f, ts)
}

// InputPoint builds a point for one device input event.
func InputPoint(serial, event string, fields map[string]any, ts time.Time) *write.Point {
	f := map[string]any{"count": 1}
	for k, v := range fields {
		f[k] = v
	}
	return write.NewPoint(MeasurementInput,
		map[string]string{"serial": serial, "event": event},
		f, ts)
}

// StatsPoint builds a point of session counters.
func StatsPoint(serial string, counters map[string]uint64, ts time.Time) *write.Point {
	f := make(map[string]any, len(counters))
	for k, v := range counters {
		f[k] = v
	}
	return write.NewPoint(MeasurementStats, map[string]string{"serial": serial}, f, ts)
}

// WriteSession records a lifecycle transition.
func (c *Client) WriteSession(serial, state string, fields map[string]any) {
	c.writePoint(SessionPoint(serial, state, fields, time.Now()))
}

// WriteInput records a device input event.
func (c *Client) WriteInput(serial, event string, fields map[string]any) {
	c.writePoint(InputPoint(serial, event, fields, time.Now()))
}

// WriteStats records end-of-session counters.
func (c *Client) WriteStats(serial string, counters map[string]uint64) {
	if len(counters) == 0 {
		return
	}
	c.writePoint(StatsPoint(serial, counters, time.Now()))
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.writePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}
