package midigrid

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/nerrad567/gridosc/internal/device"
)

// Defaults for Config.
const (
	DefaultCols       = 8
	DefaultRows       = 8
	DefaultOnVelocity = 127

	// DefaultPresenceInterval is how often an opened grid checks that its
	// input port is still listed.
	DefaultPresenceInterval = time.Second

	// eventQueueSize is the buffer between the MIDI callback and the session.
	eventQueueSize = 64
)

// ErrPortNotFound is returned by Open when no MIDI port matches.
var ErrPortNotFound = errors.New("midigrid: port not found")

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Config selects and describes the controller.
type Config struct {
	// Port is matched against MIDI input and output port names.
	Port string

	// Serial and FriendlyName override the values derived from the port name.
	Serial       string
	FriendlyName string

	Cols, Rows int

	// Channel is the MIDI channel (0-15) for LED output.
	Channel uint8

	// OnVelocity is the note velocity used to light a pad.
	OnVelocity uint8

	// PresenceInterval is the removal check period. Negative disables it.
	PresenceInterval time.Duration
}

func (c Config) withDefaults(portName string) Config {
	if c.Cols <= 0 {
		c.Cols = DefaultCols
	}
	if c.Rows <= 0 {
		c.Rows = DefaultRows
	}
	if c.OnVelocity == 0 {
		c.OnVelocity = DefaultOnVelocity
	}
	if c.PresenceInterval == 0 {
		c.PresenceInterval = DefaultPresenceInterval
	}
	if c.FriendlyName == "" {
		c.FriendlyName = portName
	}
	if c.Serial == "" {
		c.Serial = SerialFromPort(portName)
	}
	return c
}

// SerialFromPort derives a stable configuration key from a port name.
func SerialFromPort(name string) string {
	var b strings.Builder
	b.WriteString("midi-")
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Grid is a MIDI controller presented as a device.Device.
//
// Thread Safety:
//   - The MIDI driver delivers input on its own goroutine; input is handed
//     to the session through Events.
//   - Control methods are called from the session goroutine.
//   - Removal, detected by the presence watchdog or by a failed write to a
//     port that is no longer listed, closes the grid and so ends Events.
type Grid struct {
	device.Handlers

	cfg      Config
	rotation atomic.Int32
	logger   Logger

	send    func(midi.Message) error
	stop    func()
	ports   []drivers.Port
	events  chan device.Event
	present func() bool
	done    chan struct{}

	// mu orders input delivery against closing the event stream.
	mu        sync.RWMutex
	closeOnce sync.Once
	closed    atomic.Bool
	removed   atomic.Bool
	dropped   atomic.Uint64
}

// Open finds the input and output ports matching cfg.Port and starts
// listening.
func Open(cfg Config, logger Logger) (*Grid, error) {
	in, err := midi.FindInPort(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("%w: input %q: %w", ErrPortNotFound, cfg.Port, err)
	}
	out, err := midi.FindOutPort(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("%w: output %q: %w", ErrPortNotFound, cfg.Port, err)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("opening output %s: %w", out, err)
	}

	g := newGrid(cfg.withDefaults(in.String()), send, logger)
	g.ports = []drivers.Port{in, out}

	stop, err := midi.ListenTo(in, g.receive)
	if err != nil {
		_ = out.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("listening on %s: %w", in, err)
	}
	g.stop = stop

	name := in.String()
	g.present = func() bool { return portListed(name) }
	if g.cfg.PresenceInterval > 0 {
		go g.watch(g.cfg.PresenceInterval)
	}

	return g, nil
}

func newGrid(cfg Config, send func(midi.Message) error, logger Logger) *Grid {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Grid{
		cfg:    cfg,
		logger: logger,
		send:   send,
		events: make(chan device.Event, eventQueueSize),
		done:   make(chan struct{}),
	}
}

func portListed(name string) bool {
	for _, p := range midi.GetInPorts() {
		if p.String() == name {
			return true
		}
	}
	return false
}

// Ports lists the names of the available MIDI input ports.
func Ports() []string {
	var names []string
	for _, p := range midi.GetInPorts() {
		names = append(names, p.String())
	}
	return names
}

// Serial returns the configuration key of the controller.
func (g *Grid) Serial() string { return g.cfg.Serial }

// FriendlyName returns the controller's display name.
func (g *Grid) FriendlyName() string { return g.cfg.FriendlyName }

// Size returns the grid dimensions under the current rotation.
func (g *Grid) Size() (cols, rows int) {
	return logicalSize(g.cfg.Cols, g.cfg.Rows, g.currentRotation())
}

// Events returns the input stream. It is closed by Close or when the
// controller is removed.
func (g *Grid) Events() <-chan device.Event { return g.events }

// Removed reports whether the grid closed itself because the controller
// went away.
func (g *Grid) Removed() bool { return g.removed.Load() }

// Dropped returns how many input events were discarded because the queue was full.
func (g *Grid) Dropped() uint64 { return g.dropped.Load() }

// SetRotation changes the orientation applied to input and LED coordinates.
func (g *Grid) SetRotation(r device.Rotation) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %d", device.ErrInvalidRotation, int(r))
	}
	g.rotation.Store(int32(r)) //nolint:gosec // validated rotation
	return nil
}

// LEDAll lights or clears every pad.
func (g *Grid) LEDAll(on bool) error {
	for y := range g.cfg.Rows {
		for x := range g.cfg.Cols {
			if err := g.write(XYToKey(x, y), on); err != nil {
				return err
			}
		}
	}
	return nil
}

// LEDSet lights or clears the pad at logical coordinates x, y.
func (g *Grid) LEDSet(x, y int, on bool) error {
	px, py, ok := physical(x, y, g.cfg.Cols, g.cfg.Rows, g.currentRotation())
	if !ok {
		return fmt.Errorf("%w: (%d, %d)", device.ErrOutOfRange, x, y)
	}
	return g.write(XYToKey(px, py), on)
}

// Close stops listening, closes the ports and then the event stream.
func (g *Grid) Close() error {
	var errs []error
	g.closeOnce.Do(func() {
		g.closed.Store(true)
		close(g.done)
		if g.stop != nil {
			g.stop()
		}
		for _, p := range g.ports {
			if err := p.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		g.mu.Lock()
		close(g.events)
		g.mu.Unlock()
	})
	return errors.Join(errs...)
}

func (g *Grid) write(key uint8, on bool) error {
	if g.closed.Load() {
		return device.ErrClosed
	}
	msg := midi.NoteOff(g.cfg.Channel, key)
	if on {
		msg = midi.NoteOn(g.cfg.Channel, key, g.cfg.OnVelocity)
	}
	if err := g.send(msg); err != nil {
		// Without a presence check every output failure counts as removal.
		if g.present == nil || !g.present() {
			g.detach(err.Error())
		}
		return fmt.Errorf("sending %s: %w", msg, err)
	}
	return nil
}

// watch closes the grid once its input port disappears.
func (g *Grid) watch(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			if !g.present() {
				g.detach("port no longer listed")
				return
			}
		}
	}
}

// detach must not be called from receive, which holds mu.
func (g *Grid) detach(reason string) {
	if g.closed.Load() {
		return
	}
	g.removed.Store(true)
	g.logger.Warn("midi controller removed", "port", g.cfg.Port, "reason", reason)
	if err := g.Close(); err != nil {
		g.logger.Debug("closing removed controller", "error", err)
	}
}

// receive runs on the driver goroutine.
func (g *Grid) receive(msg midi.Message, _ int32) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed.Load() {
		return
	}
	ev, ok := Translate(msg, g.cfg.Cols, g.cfg.Rows, g.currentRotation())
	if !ok {
		g.logger.Debug("ignoring midi message", "message", msg.String())
		return
	}
	select {
	case g.events <- ev:
	default:
		g.dropped.Add(1)
		g.logger.Warn("midi event queue full, dropping event", "type", ev.Type.String())
	}
}

func (g *Grid) currentRotation() device.Rotation {
	return device.Rotation(g.rotation.Load())
}
