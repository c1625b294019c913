package osc

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	gosc "github.com/hypebeast/go-osc/osc"
)

// Server tuning constants.
const (
	// maxPacketSize is the largest UDP datagram the reader accepts.
	maxPacketSize = 65535

	// inboundQueueSize is the buffer between the socket reader and the session.
	inboundQueueSize = 128
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Inbound is one received OSC message and the address it came from.
type Inbound struct {
	Message *Message
	From    *net.UDPAddr
}

// Destination is a resolved remote endpoint that messages can be sent to.
type Destination interface {
	Host() string
	Port() int
	UDPAddr() *net.UDPAddr
	Close() error
}

// Server is the session's local OSC endpoint.
//
// Thread Safety:
//   - SendTo and Close are safe for concurrent use.
//   - Inbound must be consumed by a single goroutine.
type Server struct {
	conn    *net.UDPConn
	inbound chan Inbound
	done    chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool

	received atomic.Uint64
	dropped  atomic.Uint64

	logger Logger
}

// Listen opens a UDP server on port (0 picks an ephemeral port) on all
// interfaces and starts reading packets.
func Listen(port int, logger Logger) (*Server, error) {
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrListenFailed, port)
	}
	if logger == nil {
		logger = noopLogger{}
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListenFailed, err)
	}

	s := &Server{
		conn:    conn,
		inbound: make(chan Inbound, inboundQueueSize),
		done:    make(chan struct{}),
		logger:  logger,
	}

	s.wg.Add(1)
	go s.readLoop()

	return s, nil
}

// Port returns the bound UDP port.
func (s *Server) Port() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port //nolint:forcetypeassert // ListenUDP always yields *UDPAddr
}

// Inbound returns the queue of received messages. It is closed after Close.
func (s *Server) Inbound() <-chan Inbound {
	return s.inbound
}

// Dropped returns how many messages were discarded because the queue was full.
func (s *Server) Dropped() uint64 {
	return s.dropped.Load()
}

// Received returns how many messages were queued.
func (s *Server) Received() uint64 {
	return s.received.Load()
}

// SendTo encodes m and sends it to dst from the server socket, so replies
// come back to this server.
func (s *Server) SendTo(dst Destination, m *Message) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if dst == nil || dst.UDPAddr() == nil {
		return fmt.Errorf("%w: no destination", ErrSendFailed)
	}

	data, err := m.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrSendFailed, m.Address, err)
	}
	if _, err := s.conn.WriteToUDP(data, dst.UDPAddr()); err != nil {
		return fmt.Errorf("%w: %s to %s: %w", ErrSendFailed, m.Address, dst.UDPAddr(), err)
	}
	return nil
}

// Close stops the reader, closes the socket and then the inbound queue.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		err = s.conn.Close()
		s.wg.Wait()
		close(s.inbound)
	})
	return err
}

func (s *Server) readLoop() {
	defer s.wg.Done()

	buf := make([]byte, maxPacketSize)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("osc read failed", "error", err)
			continue
		}

		packet, err := gosc.ParsePacket(string(buf[:n]))
		if err != nil {
			s.logger.Debug("dropping malformed osc packet", "from", from, "error", err)
			continue
		}
		s.enqueuePacket(packet, from)
	}
}

func (s *Server) enqueuePacket(packet gosc.Packet, from *net.UDPAddr) {
	switch p := packet.(type) {
	case *gosc.Message:
		s.enqueue(Inbound{Message: p, From: from})
	case *gosc.Bundle:
		for _, m := range p.Messages {
			s.enqueue(Inbound{Message: m, From: from})
		}
		for _, b := range p.Bundles {
			s.enqueuePacket(b, from)
		}
	}
}

func (s *Server) enqueue(in Inbound) {
	select {
	case s.inbound <- in:
		s.received.Add(1)
	default:
		s.dropped.Add(1)
		s.logger.Warn("osc inbound queue full, dropping message", "address", in.Message.Address)
	}
}

// Address is a resolved UDP destination.
type Address struct {
	host string
	port int
	addr *net.UDPAddr
}

// Dial resolves host:port into a destination. No socket is opened: packets
// are sent from the session's Server.
func Dial(host string, port int) (*Address, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrResolveFailed, port)
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolveFailed, err)
	}
	return &Address{host: host, port: port, addr: addr}, nil
}

// Host returns the host the address was created from.
func (a *Address) Host() string { return a.host }

// Port returns the destination port.
func (a *Address) Port() int { return a.port }

// UDPAddr returns the resolved socket address.
func (a *Address) UDPAddr() *net.UDPAddr { return a.addr }

// Close releases the destination. Addresses hold no OS resources.
func (a *Address) Close() error { return nil }
