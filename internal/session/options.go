package session

import (
	"io"

	"github.com/nerrad567/gridosc/internal/control"
	"github.com/nerrad567/gridosc/internal/devconfig"
	"github.com/nerrad567/gridosc/internal/device"
	"github.com/nerrad567/gridosc/internal/discovery"
	"github.com/nerrad567/gridosc/internal/osc"
	"github.com/nerrad567/gridosc/internal/relay"
)

// Endpoint is the session's local OSC server.
type Endpoint interface {
	Port() int
	Inbound() <-chan osc.Inbound
	SendTo(dst osc.Destination, m *osc.Message) error
	Close() error

	// Received and Dropped count messages queued on and discarded from Inbound.
	Received() uint64
	Dropped() uint64
}

// Network creates OSC endpoints.
type Network interface {
	Listen(port int) (Endpoint, error)
	Dial(host string, port int) (osc.Destination, error)
}

// Logger interface for optional logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Status describes the session at a lifecycle transition.
type Status struct {
	Serial       string
	FriendlyName string
	State        State
	ServerPort   int
	Record       devconfig.Record
}

// Mirror receives a copy of every outgoing relayed message and every
// lifecycle transition. Implementations must not block.
type Mirror interface {
	Message(serial string, m relay.Message)
	Status(st Status)
}

// Telemetry records lifecycle transitions, input events and end-of-session
// counters. Implementations must not block.
type Telemetry interface {
	Transition(st Status)
	Input(serial string, ev device.Event)
	Counters(serial string, counters map[string]uint64)
}

// Options configures a Session.
type Options struct {
	// Device is the opened device. Required.
	Device device.Device

	// Store persists the per-device record. Required.
	Store devconfig.Store

	// Network creates endpoints. Defaults to UDP.
	Network Network

	// Advertiser publishes the local server. Defaults to discovery.Disabled.
	Advertiser discovery.Advertiser

	// Channel is the control channel; the zero value means unsupervised.
	Channel control.Channel

	// Diag receives human-readable status lines. Defaults to os.Stderr.
	Diag io.Writer

	Logger    Logger
	Mirror    Mirror
	Telemetry Telemetry
}
