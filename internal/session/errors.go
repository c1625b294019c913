package session

import "errors"

// Session errors.
var (
	// ErrEndpoint is returned by Run when the local server or the
	// destination cannot be created.
	ErrEndpoint = errors.New("session: endpoint setup failed")

	// ErrInvalidOptions is returned by New when a required collaborator is missing.
	ErrInvalidOptions = errors.New("session: invalid options")

	// ErrAlreadyRun is returned when Run is called a second time.
	ErrAlreadyRun = errors.New("session: already run")

	// errNoDestination is returned by sends while no destination is set.
	errNoDestination = errors.New("session: no destination")

	// errBadArguments marks inbound messages whose arguments do not match
	// the method signature.
	errBadArguments = errors.New("session: bad arguments")
)
