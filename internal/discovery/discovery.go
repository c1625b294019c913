// Package discovery advertises a bridge's OSC endpoint over mDNS/DNS-SD so
// clients can find it by name instead of by port.
package discovery

import (
	"errors"
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"
)

// Service defaults.
const (
	DefaultService = "_monome-osc._udp"
	DefaultDomain  = "local."
)

// ErrRegisterFailed wraps errors from the mDNS responder.
var ErrRegisterFailed = errors.New("discovery: register failed")

// Advertiser registers and withdraws one service entry.
type Advertiser interface {
	Register(name string, port int) error
	Unregister() error
}

// Logger interface for optional logging.
type Logger interface {
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}

// Config controls the advertised service type.
type Config struct {
	Service string
	Domain  string
	// Text holds optional TXT records ("key=value").
	Text []string
}

// shutdowner is the part of *zeroconf.Server used here.
type shutdowner interface {
	Shutdown()
}

type registerFunc func(name, service, domain string, port int, text []string) (shutdowner, error)

func zeroconfRegister(name, service, domain string, port int, text []string) (shutdowner, error) {
	return zeroconf.Register(name, service, domain, port, text, nil)
}

// Zeroconf advertises through github.com/grandcat/zeroconf.
//
// Register and Unregister are idempotent: registering again replaces the
// previous entry, unregistering twice is a no-op.
type Zeroconf struct {
	cfg      Config
	register registerFunc
	logger   Logger

	mu     sync.Mutex
	server shutdowner
	name   string
}

// NewZeroconf returns an advertiser using cfg, filling empty fields with
// DefaultService and DefaultDomain.
func NewZeroconf(cfg Config, logger Logger) *Zeroconf {
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Zeroconf{cfg: cfg, register: zeroconfRegister, logger: logger}
}

// Register advertises name on port.
func (z *Zeroconf) Register(name string, port int) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.server != nil {
		z.server.Shutdown()
		z.server = nil
	}

	server, err := z.register(name, z.cfg.Service, z.cfg.Domain, port, z.cfg.Text)
	if err != nil {
		return fmt.Errorf("%w: %s on %s: %w", ErrRegisterFailed, name, z.cfg.Service, err)
	}
	z.server = server
	z.name = name
	z.logger.Info("mdns service registered", "name", name, "service", z.cfg.Service, "domain", z.cfg.Domain, "port", port)
	return nil
}

// Unregister withdraws the current entry, if any.
func (z *Zeroconf) Unregister() error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.server == nil {
		return nil
	}
	z.server.Shutdown()
	z.server = nil
	z.logger.Info("mdns service withdrawn", "name", z.name)
	return nil
}

// Disabled is an Advertiser that does nothing.
type Disabled struct{}

// Register does nothing.
func (Disabled) Register(string, int) error { return nil }

// Unregister does nothing.
func (Disabled) Unregister() error { return nil }

// ServiceName formats the advertised name of a device.
func ServiceName(friendly, serial string) string {
	return fmt.Sprintf("%s (%s)", friendly, serial)
}
