package session

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gridosc/internal/device"
	"github.com/nerrad567/gridosc/internal/osc"
)

// System method paths. These are never prefixed.
const (
	PathSysPort     = "/sys/port"
	PathSysHost     = "/sys/host"
	PathSysPrefix   = "/sys/prefix"
	PathSysRotation = "/sys/rotation"
	PathSysInfo     = "/sys/info"
	PathSysID       = "/sys/id"
	PathSysSize     = "/sys/size"
)

// Prefixed method suffixes.
const (
	SuffixLEDSet = "grid/led/set"
	SuffixLEDAll = "grid/led/all"
)

type method func(in osc.Inbound) error

// methodTable returns the system methods keyed by full path. Prefixed
// methods are looked up by suffix in handleInbound.
func (s *Session) methodTable() map[string]method {
	return map[string]method{
		PathSysPort:     s.sysPort,
		PathSysHost:     s.sysHost,
		PathSysPrefix:   s.sysPrefix,
		PathSysRotation: s.sysRotation,
		PathSysInfo:     s.sysInfo,
	}
}

func (s *Session) handleInbound(in osc.Inbound) {
	if in.Message == nil {
		return
	}
	addr := in.Message.Address

	m, ok := s.methods[addr]
	if !ok {
		m, ok = s.prefixed(addr)
	}
	if !ok {
		s.ignored.Add(1)
		s.logger.Debug("unhandled osc method", "address", addr, "from", in.From)
		return
	}

	if err := m(in); err != nil {
		s.ignored.Add(1)
		s.logger.Debug("osc method failed", "address", addr, "from", in.From, "error", err)
		return
	}
	s.handled.Add(1)
}

func (s *Session) prefixed(addr string) (method, bool) {
	rest, ok := strings.CutPrefix(addr, s.record.Prefix+"/")
	if !ok {
		return nil, false
	}
	switch rest {
	case SuffixLEDSet:
		return s.ledSet, true
	case SuffixLEDAll:
		return s.ledAll, true
	}
	return nil, false
}

func (s *Session) sysPort(in osc.Inbound) error {
	port, ok := singleInt(in.Message)
	if !ok {
		return fmt.Errorf("%w: want i", errBadArguments)
	}
	return s.redirect(s.record.Host, port)
}

func (s *Session) sysHost(in osc.Inbound) error {
	host, ok := singleString(in.Message)
	if !ok || strings.TrimSpace(host) == "" {
		return fmt.Errorf("%w: want s", errBadArguments)
	}
	return s.redirect(host, s.record.Port)
}

// redirect resolves the new destination before releasing the old one, so
// a failed change leaves the session sending where it was.
func (s *Session) redirect(host string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range", errBadArguments, port)
	}
	dest, err := s.network.Dial(host, port)
	if err != nil {
		return err
	}
	old := s.dest
	s.dest = dest
	s.record.Host = host
	s.record.Port = port
	if old != nil {
		if err := old.Close(); err != nil {
			s.logger.Debug("closing previous destination", "error", err)
		}
	}
	s.logger.Info("destination changed", "serial", s.dev.Serial(), "host", host, "port", port)
	s.publishStatus()
	return nil
}

func (s *Session) sysPrefix(in osc.Inbound) error {
	raw, ok := singleString(in.Message)
	if !ok {
		return fmt.Errorf("%w: want s", errBadArguments)
	}
	prefix := osc.NormalizePrefix(raw)
	if prefix == "" {
		return fmt.Errorf("%w: empty prefix", errBadArguments)
	}
	s.record.Prefix = prefix
	s.logger.Info("prefix changed", "serial", s.dev.Serial(), "prefix", prefix)
	s.publishStatus()
	return s.sendOSC(s.dest, osc.NewMessage(PathSysPrefix, prefix))
}

func (s *Session) sysRotation(in osc.Inbound) error {
	degrees, ok := singleInt(in.Message)
	if !ok {
		return fmt.Errorf("%w: want i", errBadArguments)
	}
	rot, err := device.ParseRotation(degrees)
	if err != nil {
		return err
	}
	if err := s.dev.SetRotation(rot); err != nil {
		return err
	}
	s.record.Rotation = rot
	s.publishStatus()
	return nil
}

// sysInfo replies to the current destination (no arguments), to a port on
// the sender's host (i) or to an explicit host and port (s i).
func (s *Session) sysInfo(in osc.Inbound) error {
	args := in.Message.Arguments

	switch len(args) {
	case 0:
		return s.sendInfo(s.dest)

	case 1:
		port, ok := osc.IntArg(in.Message, 0)
		if !ok || in.From == nil {
			return fmt.Errorf("%w: want i", errBadArguments)
		}
		return s.sendInfoTo(in.From.IP.String(), port)

	case 2:
		host, okHost := osc.StringArg(in.Message, 0)
		port, okPort := osc.IntArg(in.Message, 1)
		if !okHost || !okPort {
			return fmt.Errorf("%w: want s i", errBadArguments)
		}
		return s.sendInfoTo(host, port)
	}
	return fmt.Errorf("%w: want none, i or s i", errBadArguments)
}

func (s *Session) sendInfoTo(host string, port int) error {
	dst, err := s.network.Dial(host, port)
	if err != nil {
		return err
	}
	defer dst.Close() //nolint:errcheck // reply destinations hold no resources worth reporting

	return s.sendInfo(dst)
}

func (s *Session) sendInfo(dst osc.Destination) error {
	cols, rows := s.dev.Size()
	replies := []*osc.Message{
		osc.NewMessage(PathSysID, s.dev.Serial()),
		osc.NewMessage(PathSysSize, osc.Int32s(cols, rows)...),
		osc.NewMessage(PathSysHost, s.record.Host),
		osc.NewMessage(PathSysPort, osc.Int32s(s.record.Port)...),
		osc.NewMessage(PathSysPrefix, s.record.Prefix),
		osc.NewMessage(PathSysRotation, osc.Int32s(int(s.record.Rotation))...),
	}
	for _, m := range replies {
		if err := s.sendOSC(dst, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) ledSet(in osc.Inbound) error {
	x, okX := osc.IntArg(in.Message, 0)
	y, okY := osc.IntArg(in.Message, 1)
	state, okS := osc.IntArg(in.Message, 2)
	if len(in.Message.Arguments) != 3 || !okX || !okY || !okS {
		return fmt.Errorf("%w: want i i i", errBadArguments)
	}
	return s.dev.LEDSet(x, y, state != 0)
}

func (s *Session) ledAll(in osc.Inbound) error {
	state, ok := singleInt(in.Message)
	if !ok {
		return fmt.Errorf("%w: want i", errBadArguments)
	}
	return s.dev.LEDAll(state != 0)
}

func (s *Session) publishStatus() {
	if s.mirror != nil {
		s.mirror.Status(s.status())
	}
}

func singleInt(m *osc.Message) (int, bool) {
	if len(m.Arguments) != 1 {
		return 0, false
	}
	return osc.IntArg(m, 0)
}

func singleString(m *osc.Message) (string, bool) {
	if len(m.Arguments) != 1 {
		return "", false
	}
	return osc.StringArg(m, 0)
}
