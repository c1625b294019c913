//go:build integration

package mqtt

import (
	"testing"
	"time"

	"github.com/nerrad567/gridosc/internal/infrastructure/config"
)

// Integration tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "gridosc-integration-test",
		},
		QoS:       1,
		TopicRoot: "gridosc-test",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestIntegration_ConnectPublishClose(t *testing.T) {
	client, err := Connect(integrationConfig(), "m-integration")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.Publish("gridosc-test/ping", []byte("1"), 1, false); err != nil {
		t.Errorf("Publish() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}

func TestIntegration_MirrorThroughBroker(t *testing.T) {
	client, err := Connect(integrationConfig(), "m-mirror")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	m := NewMirror(client, "gridosc-test", 1, nil)
	m.Status(Status{Serial: "m-mirror", State: "active"})      //nolint:errcheck // queued
	m.Message("m-mirror", "/monome/grid/key", []int32{0, 0, 1}) //nolint:errcheck // queued

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p, _, _ := m.Stats(); p == 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	m.Close() //nolint:errcheck // Test cleanup

	if p, _, f := m.Stats(); p != 2 || f != 0 {
		t.Errorf("Stats() published=%d failed=%d, want 2 and 0", p, f)
	}
}
