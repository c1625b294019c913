package control

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/nerrad567/gridosc/internal/ipc"
)

// Channel is the control-channel stream pair. Both fields are nil when the
// process is not supervised.
type Channel struct {
	In  io.Reader
	Out io.Writer
}

// Supervised reports whether the channel is present.
func (c Channel) Supervised() bool {
	return c.Out != nil
}

// Detect inspects stdin and stdout. If either is an interactive terminal the
// process is treated as unsupervised and an empty Channel is returned.
func Detect(stdin, stdout *os.File) Channel {
	if isTerminal(stdin) || isTerminal(stdout) {
		return Channel{}
	}
	return Channel{In: stdin, Out: stdout}
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return true
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// Notifier emits lifecycle messages on the control channel.
//
// Every announce is exactly one framed write. When unsupervised the
// announce methods do nothing and return nil.
type Notifier struct {
	out  io.Writer
	diag io.Writer
}

// NewNotifier returns a notifier writing frames to out and diagnostic text
// to diag. A nil out makes the notifier unsupervised. A nil diag discards
// diagnostics.
func NewNotifier(out, diag io.Writer) *Notifier {
	if diag == nil {
		diag = io.Discard
	}
	return &Notifier{out: out, diag: diag}
}

// Supervised reports whether a control channel is attached.
func (n *Notifier) Supervised() bool {
	return n.out != nil
}

// AnnounceSimple sends a payload-less message (DeviceReady or
// DeviceDisconnection).
func (n *Notifier) AnnounceSimple(kind ipc.MessageType) error {
	msg, err := ipc.NewSimple(kind)
	if err != nil {
		return err
	}
	return n.send(msg)
}

// AnnounceDeviceInfo sends the device serial and friendly name.
func (n *Notifier) AnnounceDeviceInfo(serial, friendly string) error {
	return n.send(ipc.DeviceInfo{Serial: serial, FriendlyName: friendly})
}

// AnnouncePort sends the local OSC server port.
func (n *Notifier) AnnouncePort(port uint16) error {
	return n.send(ipc.OSCPortChange{Port: port})
}

// Diagf writes one human-readable status line to the diagnostic stream.
func (n *Notifier) Diagf(format string, args ...any) {
	fmt.Fprintf(n.diag, format+"\n", args...) //nolint:errcheck // diagnostics are best effort
}

func (n *Notifier) send(msg ipc.Message) error {
	if n.out == nil {
		return nil
	}
	if err := ipc.WriteMessage(n.out, msg); err != nil {
		return fmt.Errorf("announcing %s: %w", msg.Type(), err)
	}
	return nil
}
