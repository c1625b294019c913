package mqtt

import "strings"

// DefaultTopicRoot is used when no root is configured.
const DefaultTopicRoot = "gridosc"

// Topics builds gridosc topic names under a root.
//
//	topics := mqtt.Topics{Root: "gridosc"}
//	topics.DeviceStatus("m1000001") // "gridosc/m1000001/status"
type Topics struct {
	Root string
}

func (t Topics) root() string {
	r := strings.Trim(t.Root, "/")
	if r == "" {
		return DefaultTopicRoot
	}
	return r
}

// DeviceOSC returns the topic carrying a device's outgoing OSC messages.
func (t Topics) DeviceOSC(serial string) string {
	return t.root() + "/" + topicSegment(serial) + "/osc"
}

// DeviceStatus returns the retained status topic of a device.
func (t Topics) DeviceStatus(serial string) string {
	return t.root() + "/" + topicSegment(serial) + "/status"
}

// AllDeviceStatus matches the status topic of every device.
func (t Topics) AllDeviceStatus() string {
	return t.root() + "/+/status"
}

// topicSegment makes s safe to use as one topic level.
func topicSegment(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
