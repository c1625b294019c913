// Package mqtt mirrors bridge activity to an MQTT broker.
//
// Every OSC message a bridge sends to its client is republished, and the
// session state (active, draining, terminated) is kept as a retained status
// message per device so dashboards see the current state on subscribe.
//
// Topic layout under the configured root (default "gridosc"):
//
//	<root>/<serial>/osc       outgoing OSC messages, JSON {"path":..,"args":[..]}
//	<root>/<serial>/status    retained session status, JSON
//
// The broker's last-will marks the device status offline if the bridge dies
// without a clean shutdown.
//
// Publishing never blocks the caller: Mirror queues messages and a worker
// goroutine publishes them. When the queue is full new messages are dropped
// and counted.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT, serial)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	mirror := mqtt.NewMirror(client, cfg.MQTT.TopicRoot, byte(cfg.MQTT.QoS), logger)
//	defer mirror.Close()
package mqtt
