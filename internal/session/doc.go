// Package session runs one bridge session for one device.
//
// A session moves through
//
//	Init -> Configured -> Listening -> Active -> Draining -> Terminated
//
// and ends in Error instead of Terminated when an endpoint cannot be
// created. Setup loads the device's stored configuration (falling back to
// defaults), opens the local OSC server and resolves the destination,
// wires the event relay into the device and announces the session. The
// event loop then runs until the device goes away or the context ends.
// Teardown announces the disconnect, persists the configuration and
// releases the destination before the local server.
//
// All device handlers and inbound OSC methods run on the goroutine that
// called Run, so session state needs no locking.
package session
