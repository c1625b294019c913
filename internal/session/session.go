package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gridosc/internal/control"
	"github.com/nerrad567/gridosc/internal/devconfig"
	"github.com/nerrad567/gridosc/internal/device"
	"github.com/nerrad567/gridosc/internal/discovery"
	"github.com/nerrad567/gridosc/internal/ipc"
	"github.com/nerrad567/gridosc/internal/osc"
	"github.com/nerrad567/gridosc/internal/relay"
)

// persistTimeout bounds the configuration write during Draining.
const persistTimeout = 5 * time.Second

// Session bridges one device to OSC.
//
// Thread Safety:
//   - Run must be called once, from one goroutine.
//   - State and Counters may be called from any goroutine.
type Session struct {
	dev        device.Device
	store      devconfig.Store
	network    Network
	advertiser discovery.Advertiser
	notifier   *control.Notifier
	logger     Logger
	mirror     Mirror
	telemetry  Telemetry

	state atomic.Int32
	ran   atomic.Bool

	// Owned by the Run goroutine.
	record    devconfig.Record
	server    Endpoint
	boundPort int
	dest      osc.Destination
	methods   map[string]method

	sent       atomic.Uint64
	sendErrors atomic.Uint64
	events     atomic.Uint64
	handled    atomic.Uint64
	ignored    atomic.Uint64

	// Server queue counts, copied when the session drains.
	inboundReceived atomic.Uint64
	inboundDropped  atomic.Uint64
}

// New validates opts and returns a session in StateInit.
func New(opts Options) (*Session, error) {
	if opts.Device == nil {
		return nil, fmt.Errorf("%w: device is required", ErrInvalidOptions)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidOptions)
	}

	s := &Session{
		dev:        opts.Device,
		store:      opts.Store,
		network:    opts.Network,
		advertiser: opts.Advertiser,
		logger:     opts.Logger,
		mirror:     opts.Mirror,
		telemetry:  opts.Telemetry,
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	if s.network == nil {
		s.network = UDPNetwork{Logger: s.logger}
	}
	if s.advertiser == nil {
		s.advertiser = discovery.Disabled{}
	}

	diag := opts.Diag
	if diag == nil {
		diag = os.Stderr
	}
	var out io.Writer
	if opts.Channel.Supervised() {
		out = opts.Channel.Out
	}
	s.notifier = control.NewNotifier(out, diag)

	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Counters returns the session's activity counters.
func (s *Session) Counters() map[string]uint64 {
	return map[string]uint64{
		"osc_sent":        s.sent.Load(),
		"osc_send_errors": s.sendErrors.Load(),
		"device_events":   s.events.Load(),
		"inbound_handled": s.handled.Load(),
		"inbound_ignored": s.ignored.Load(),
		"inbound_queued":  s.inboundReceived.Load(),
		"inbound_dropped": s.inboundDropped.Load(),
	}
}

// Run executes the session until the device goes away or ctx ends.
//
// It returns nil after an orderly teardown and an error wrapping
// ErrEndpoint when the local server or destination cannot be created.
func (s *Session) Run(ctx context.Context) (err error) {
	if !s.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	serial := s.dev.Serial()

	// Registered first so it runs last: the final state is published with
	// the record still set, then the record is cleared.
	defer func() {
		if err != nil {
			s.transition(StateError)
		} else {
			s.transition(StateTerminated)
		}
		s.record = devconfig.Record{}
	}()

	s.configure(ctx, serial)

	s.transition(StateListening)
	server, err := s.network.Listen(s.record.ServerPort)
	if err != nil {
		s.logger.Error("opening osc server failed", "serial", serial, "port", s.record.ServerPort, "error", err)
		return fmt.Errorf("%w: listen on %d: %w", ErrEndpoint, s.record.ServerPort, err)
	}
	s.server = server
	defer s.releaseServer()
	s.boundPort = server.Port()
	s.record.ServerPort = s.boundPort

	dest, err := s.network.Dial(s.record.Host, s.record.Port)
	if err != nil {
		s.logger.Error("resolving destination failed", "serial", serial,
			"host", s.record.Host, "port", s.record.Port, "error", err)
		return fmt.Errorf("%w: destination %s:%d: %w", ErrEndpoint, s.record.Host, s.record.Port, err)
	}
	s.dest = dest
	defer s.releaseDest()

	serviceName := discovery.ServiceName(s.dev.FriendlyName(), serial)

	s.activate(serial, serviceName)
	s.loop(ctx)
	s.drain(ctx, serial)

	return nil
}

// configure loads the stored record, falling back to defaults.
func (s *Session) configure(ctx context.Context, serial string) {
	rec, err := s.store.Read(ctx, serial)
	if err != nil {
		if errors.Is(err, devconfig.ErrNotFound) {
			s.logger.Info("no stored config for device", "serial", serial)
		} else {
			s.logger.Warn("reading device config failed", "serial", serial, "error", err)
		}
		s.notifier.Diagf("gridosc [%s]: couldn't read config, using defaults", serial)
		rec = devconfig.Defaults()
	}
	s.record = rec
	s.transition(StateConfigured)
}

func (s *Session) activate(serial, serviceName string) {
	s.transition(StateActive)

	relay.Register(s.dev, outlet{s})

	if err := s.dev.SetRotation(s.record.Rotation); err != nil {
		s.logger.Warn("setting rotation failed", "serial", serial, "rotation", int(s.record.Rotation), "error", err)
	}
	if err := s.dev.LEDAll(false); err != nil {
		s.logger.Warn("clearing leds failed", "serial", serial, "error", err)
	}

	s.methods = s.methodTable()

	port := s.server.Port()
	if s.notifier.Supervised() {
		s.announce(s.notifier.AnnounceDeviceInfo(serial, s.dev.FriendlyName()))
		s.announce(s.notifier.AnnouncePort(uint16(port))) //nolint:gosec // bound UDP ports fit in uint16
		s.announce(s.notifier.AnnounceSimple(ipc.TypeDeviceReady))
	} else {
		s.notifier.Diagf("gridosc [%s]: connected, server running on port %d", serial, port)
	}

	if err := s.advertiser.Register(serviceName, port); err != nil {
		s.logger.Warn("service registration failed", "serial", serial, "name", serviceName, "error", err)
	}

	relay.ConnectionStatus(outlet{s}, true)
	s.logger.Info("session active", "serial", serial, "port", port,
		"host", s.record.Host, "dest_port", s.record.Port, "prefix", s.record.Prefix)
}

// loop runs until the device event stream closes or ctx ends.
func (s *Session) loop(ctx context.Context) {
	events := s.dev.Events()
	inbound := s.server.Inbound()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("session cancelled", "serial", s.dev.Serial())
			return

		case ev, ok := <-events:
			if !ok {
				s.logger.Info("device removed", "serial", s.dev.Serial())
				return
			}
			s.events.Add(1)
			s.dev.Dispatch(ev)
			if s.telemetry != nil {
				s.telemetry.Input(s.dev.Serial(), ev)
			}

		case in, ok := <-inbound:
			if !ok {
				s.logger.Warn("osc server stopped", "serial", s.dev.Serial())
				inbound = nil
				continue
			}
			s.handleInbound(in)
		}
	}
}

func (s *Session) drain(ctx context.Context, serial string) {
	s.transition(StateDraining)

	relay.ConnectionStatus(outlet{s}, false)

	if err := s.advertiser.Unregister(); err != nil {
		s.logger.Warn("service unregistration failed", "serial", serial, "error", err)
	}

	if s.notifier.Supervised() {
		s.announce(s.notifier.AnnounceSimple(ipc.TypeDeviceDisconnection))
	} else {
		s.notifier.Diagf("gridosc [%s]: disconnected, exiting", serial)
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.store.Write(wctx, serial, s.record); err != nil {
		s.logger.Warn("writing device config failed", "serial", serial, "error", err)
		s.notifier.Diagf("gridosc [%s]: couldn't write config", serial)
	}

	s.inboundReceived.Store(s.server.Received())
	s.inboundDropped.Store(s.server.Dropped())
	if dropped := s.inboundDropped.Load(); dropped > 0 {
		s.logger.Warn("inbound osc messages dropped", "serial", serial, "dropped", dropped)
	}

	if s.telemetry != nil {
		s.telemetry.Counters(serial, s.Counters())
	}
}

func (s *Session) releaseDest() {
	if s.dest == nil {
		return
	}
	if err := s.dest.Close(); err != nil {
		s.logger.Debug("closing destination", "error", err)
	}
	s.dest = nil
}

func (s *Session) releaseServer() {
	if s.server == nil {
		return
	}
	if err := s.server.Close(); err != nil {
		s.logger.Debug("closing osc server", "error", err)
	}
	s.server = nil
}

func (s *Session) announce(err error) {
	if err != nil {
		s.logger.Warn("control channel write failed", "serial", s.dev.Serial(), "error", err)
	}
}

func (s *Session) transition(to State) {
	from := State(s.state.Swap(int32(to)))
	s.logger.Debug("session state", "serial", s.dev.Serial(), "from", from.String(), "to", to.String())

	st := s.status()
	if s.mirror != nil {
		s.mirror.Status(st)
	}
	if s.telemetry != nil {
		s.telemetry.Transition(st)
	}
}

func (s *Session) status() Status {
	return Status{
		Serial:       s.dev.Serial(),
		FriendlyName: s.dev.FriendlyName(),
		State:        s.State(),
		ServerPort:   s.boundPort,
		Record:       s.record,
	}
}

// send delivers m to the current destination and mirrors it.
func (s *Session) send(m relay.Message) error {
	if s.mirror != nil {
		s.mirror.Message(s.dev.Serial(), m)
	}
	return s.sendOSC(s.dest, m.OSC())
}

func (s *Session) sendOSC(dst osc.Destination, m *osc.Message) error {
	if dst == nil || s.server == nil {
		s.sendErrors.Add(1)
		return errNoDestination
	}
	if err := s.server.SendTo(dst, m); err != nil {
		s.sendErrors.Add(1)
		s.logger.Debug("osc send failed", "address", m.Address, "error", err)
		return err
	}
	s.sent.Add(1)
	return nil
}

// outlet adapts the session to relay.Outlet without exporting the methods.
type outlet struct{ s *Session }

func (o outlet) Prefix() string { return o.s.record.Prefix }

func (o outlet) Send(m relay.Message) error { return o.s.send(m) }
