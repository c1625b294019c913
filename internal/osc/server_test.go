package osc

import (
	"errors"
	"net"
	"testing"
	"time"
)

func listenLoopback(t *testing.T) *Server {
	t.Helper()
	s, err := Listen(0, nil)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func receive(t *testing.T, s *Server) Inbound {
	t.Helper()
	select {
	case in, ok := <-s.Inbound():
		if !ok {
			t.Fatal("inbound closed")
		}
		return in
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Inbound{}
}

func TestServer_SendAndReceive(t *testing.T) {
	a := listenLoopback(t)
	b := listenLoopback(t)

	if a.Port() == 0 {
		t.Fatal("Port() = 0, want ephemeral port")
	}

	dst, err := Dial("127.0.0.1", b.Port())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer dst.Close()

	msg := NewMessage("/monome/grid/key", Int32s(3, 5, 1)...)
	if err := a.SendTo(dst, msg); err != nil {
		t.Fatalf("SendTo() error = %v", err)
	}

	in := receive(t, b)
	if in.Message.Address != "/monome/grid/key" {
		t.Errorf("Address = %q, want /monome/grid/key", in.Message.Address)
	}
	for i, want := range []int{3, 5, 1} {
		if got, ok := IntArg(in.Message, i); !ok || got != want {
			t.Errorf("arg %d = %d, %v; want %d", i, got, ok, want)
		}
	}
	if in.From == nil || in.From.Port != a.Port() {
		t.Errorf("From = %v, want port %d", in.From, a.Port())
	}
	if b.Received() != 1 {
		t.Errorf("Received() = %d, want 1", b.Received())
	}
}

func TestServer_MalformedPacketIgnored(t *testing.T) {
	s := listenLoopback(t)

	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: s.Port()})
	if err != nil {
		t.Fatalf("DialUDP() error = %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("not osc")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	good, _ := NewMessage("/sys/info").MarshalBinary()
	if _, err := conn.Write(good); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	in := receive(t, s)
	if in.Message.Address != "/sys/info" {
		t.Errorf("Address = %q, want /sys/info", in.Message.Address)
	}
}

func TestServer_CloseClosesInbound(t *testing.T) {
	s, err := Listen(0, nil)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	select {
	case _, ok := <-s.Inbound():
		if ok {
			t.Error("inbound should be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("inbound not closed")
	}

	dst, _ := Dial("127.0.0.1", 9)
	if err := s.SendTo(dst, NewMessage("/x")); !errors.Is(err, ErrClosed) {
		t.Errorf("SendTo after Close error = %v, want ErrClosed", err)
	}
}

func TestListen_InvalidPort(t *testing.T) {
	if _, err := Listen(70000, nil); !errors.Is(err, ErrListenFailed) {
		t.Errorf("Listen(70000) error = %v, want ErrListenFailed", err)
	}
}

func TestDial(t *testing.T) {
	a, err := Dial("127.0.0.1", 8000)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if a.Host() != "127.0.0.1" || a.Port() != 8000 {
		t.Errorf("Dial() = %s:%d, want 127.0.0.1:8000", a.Host(), a.Port())
	}
	if a.UDPAddr().Port != 8000 {
		t.Errorf("UDPAddr().Port = %d, want 8000", a.UDPAddr().Port)
	}

	for _, port := range []int{0, -1, 65536} {
		if _, err := Dial("127.0.0.1", port); !errors.Is(err, ErrResolveFailed) {
			t.Errorf("Dial(port %d) error = %v, want ErrResolveFailed", port, err)
		}
	}
}

func TestServer_SendToNilDestination(t *testing.T) {
	s := listenLoopback(t)
	if err := s.SendTo(nil, NewMessage("/x")); !errors.Is(err, ErrSendFailed) {
		t.Errorf("SendTo(nil) error = %v, want ErrSendFailed", err)
	}
}
