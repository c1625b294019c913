package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/nerrad567/gridosc/internal/devconfig"
	"github.com/nerrad567/gridosc/internal/device"
	"github.com/nerrad567/gridosc/internal/osc"
	"github.com/nerrad567/gridosc/internal/relay"
)

// callLog records calls across fakes in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) index(call string) int {
	for i, c := range l.all() {
		if c == call {
			return i
		}
	}
	return -1
}

type fakeDevice struct {
	device.Handlers

	log    *callLog
	events chan device.Event
}

func newFakeDevice(log *callLog) *fakeDevice {
	return &fakeDevice{log: log, events: make(chan device.Event)}
}

func (d *fakeDevice) Serial() string { return "m1000001" }
func (d *fakeDevice) FriendlyName() string { return "monome 64" }
func (d *fakeDevice) Size() (int, int) { return 8, 8 }
func (d *fakeDevice) Events() <-chan device.Event { return d.events }

func (d *fakeDevice) SetRotation(r device.Rotation) error {
	d.log.add("device.rotation %d", int(r))
	return nil
}

func (d *fakeDevice) LEDAll(on bool) error {
	d.log.add("device.led_all %t", on)
	return nil
}

func (d *fakeDevice) LEDSet(x, y int, on bool) error {
	d.log.add("device.led_set %d %d %t", x, y, on)
	return nil
}

type sentMessage struct {
	To      string
	Address string
	Args    []any
}

type fakeEndpoint struct {
	log      *callLog
	port     int
	inbound  chan osc.Inbound
	sent     []sentMessage
	closed   bool
	received uint64
	dropped  uint64
}

func (e *fakeEndpoint) Port() int { return e.port }
func (e *fakeEndpoint) Inbound() <-chan osc.Inbound { return e.inbound }
func (e *fakeEndpoint) Received() uint64 { return e.received }
func (e *fakeEndpoint) Dropped() uint64 { return e.dropped }

func (e *fakeEndpoint) SendTo(dst osc.Destination, m *osc.Message) error {
	if e.closed {
		return osc.ErrClosed
	}
	to := fmt.Sprintf("%s:%d", dst.Host(), dst.Port())
	e.sent = append(e.sent, sentMessage{To: to, Address: m.Address, Args: m.Arguments})
	return nil
}

func (e *fakeEndpoint) Close() error {
	e.closed = true
	e.log.add("server.close")
	return nil
}

// addresses returns the sent OSC addresses in order.
func (e *fakeEndpoint) addresses() []string {
	out := make([]string, len(e.sent))
	for i, m := range e.sent {
		out[i] = m.Address
	}
	return out
}

type fakeDest struct {
	log  *callLog
	host string
	port int
}

func (d *fakeDest) Host() string { return d.host }
func (d *fakeDest) Port() int { return d.port }

func (d *fakeDest) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(d.host), Port: d.port}
}

func (d *fakeDest) Close() error {
	d.log.add("dest.close %s:%d", d.host, d.port)
	return nil
}

type fakeNetwork struct {
	log       *callLog
	endpoint  *fakeEndpoint
	listenErr error
	dialErr   map[string]error
	listened  []int
}

func newFakeNetwork(log *callLog) *fakeNetwork {
	return &fakeNetwork{
		log:      log,
		endpoint: &fakeEndpoint{log: log, port: 9000, inbound: make(chan osc.Inbound)},
		dialErr:  map[string]error{},
	}
}

func (n *fakeNetwork) Listen(port int) (Endpoint, error) {
	n.listened = append(n.listened, port)
	if n.listenErr != nil {
		return nil, n.listenErr
	}
	n.log.add("server.open")
	return n.endpoint, nil
}

func (n *fakeNetwork) Dial(host string, port int) (osc.Destination, error) {
	if err := n.dialErr[host]; err != nil {
		return nil, err
	}
	n.log.add("dest.open %s:%d", host, port)
	return &fakeDest{log: n.log, host: host, port: port}, nil
}

type memStore struct {
	records map[string]devconfig.Record
	readErr error
	writes  int
}

func newMemStore() *memStore {
	return &memStore{records: map[string]devconfig.Record{}}
}

func (m *memStore) Read(_ context.Context, serial string) (devconfig.Record, error) {
	if m.readErr != nil {
		return devconfig.Record{}, m.readErr
	}
	rec, ok := m.records[serial]
	if !ok {
		return devconfig.Record{}, devconfig.ErrNotFound
	}
	return rec, nil
}

func (m *memStore) Write(_ context.Context, serial string, rec devconfig.Record) error {
	m.writes++
	m.records[serial] = rec
	return nil
}

type fakeAdvertiser struct {
	log *callLog
	err error
}

func (a *fakeAdvertiser) Register(name string, port int) error {
	a.log.add("discovery.register %s %d", name, port)
	return a.err
}

func (a *fakeAdvertiser) Unregister() error {
	a.log.add("discovery.unregister")
	return nil
}

type fakeMirror struct {
	messages []relay.Message
	states   []State
	last     Status
}

func (m *fakeMirror) Message(_ string, msg relay.Message) { m.messages = append(m.messages, msg) }

func (m *fakeMirror) Status(st Status) {
	m.states = append(m.states, st.State)
	m.last = st
}

type fakeTelemetry struct {
	transitions []State
	inputs      int
	counters    map[string]uint64
}

func (t *fakeTelemetry) Transition(st Status) { t.transitions = append(t.transitions, st.State) }
func (t *fakeTelemetry) Input(string, device.Event) { t.inputs++ }
func (t *fakeTelemetry) Counters(_ string, c map[string]uint64) { t.counters = c }

var errBoom = errors.New("boom")
