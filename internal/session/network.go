package session

import (
	"github.com/nerrad567/gridosc/internal/osc"
)

// UDPNetwork creates real OSC-over-UDP endpoints.
type UDPNetwork struct {
	Logger osc.Logger
}

// Listen opens the local server on port (0 for ephemeral).
func (n UDPNetwork) Listen(port int) (Endpoint, error) {
	srv, err := osc.Listen(port, n.Logger)
	if err != nil {
		return nil, err
	}
	return srv, nil
}

// Dial resolves the destination host and port.
func (n UDPNetwork) Dial(host string, port int) (osc.Destination, error) {
	addr, err := osc.Dial(host, port)
	if err != nil {
		return nil, err
	}
	return addr, nil
}
