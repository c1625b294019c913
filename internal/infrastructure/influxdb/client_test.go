package influxdb_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gridosc/internal/infrastructure/config"
	"github.com/nerrad567/gridosc/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "gridosc-dev-token",
		Org:           "gridosc",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// skipIfNoInfluxDB skips the test if InfluxDB is not running.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		client, err := influxdb.Connect(testConfig())
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		client.Close()
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_And_Write(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var writeErr error
	client.SetOnError(func(err error) { writeErr = err })

	client.WriteSession("m-test", "active", map[string]any{"server_port": 14656})
	client.WriteInput("m-test", "button_down", map[string]any{"x": 1, "y": 2})
	client.WriteStats("m-test", map[string]uint64{"osc_dropped": 0})
	client.Flush()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if writeErr != nil {
		t.Errorf("async write error = %v", writeErr)
	}
}

func TestClient_ZeroValueIsInert(t *testing.T) {
	c := &influxdb.Client{}

	if c.IsConnected() {
		t.Error("IsConnected() = true for zero client")
	}
	// Writes on a disconnected client are dropped without panicking.
	c.WriteSession("s", "active", nil)
	c.WriteInput("s", "tilt", nil)
	c.WriteStats("s", map[string]uint64{"n": 1})
	c.WritePoint("custom", nil, map[string]any{"v": 1})
	c.Flush()

	if err := c.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestPoints(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	tests := []struct {
		name  string
		point *write.Point
		want  []string
	}{
		{
			name:  "session",
			point: influxdb.SessionPoint("m1", "active", map[string]any{"server_port": 14656}, ts),
			want:  []string{"gridosc_session,serial=m1,state=active", "server_port=14656i", "transition=1i"},
		},
		{
			name:  "input",
			point: influxdb.InputPoint("m1", "button_down", map[string]any{"x": 3, "y": 5}, ts),
			want:  []string{"gridosc_input,event=button_down,serial=m1", "count=1i", "x=3i", "y=5i"},
		},
		{
			name:  "stats",
			point: influxdb.StatsPoint("m1", map[string]uint64{"osc_dropped": 2}, ts),
			want:  []string{"gridosc_stats,serial=m1", "osc_dropped=2u"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := write.PointToLineProtocol(tt.point, time.Second)
			for _, w := range tt.want {
				if !strings.Contains(line, w) {
					t.Errorf("line %q missing %q", line, w)
				}
			}
		})
	}
}
