// Package device defines the contract between the bridge and a physical
// grid/control-surface device.
//
// A device produces discrete input events (button, encoder, tilt) and
// accepts a small set of control operations (rotation, LED output). The
// bridge never owns a device: it borrows an already-opened handle for the
// lifetime of one session.
//
// # Events
//
// Every event carries an EventType. Handlers are registered per type on
// the device's callback registry (see Handlers) and invoked by Dispatch
// from the session goroutine only:
//
//	dev.RegisterHandler(device.ButtonDown, func(ev device.Event) {
//	    fmt.Println(ev.Grid.X, ev.Grid.Y)
//	})
//
//	for ev := range dev.Events() {
//	    dev.Dispatch(ev)
//	}
//
// Drivers embed Handlers and publish events on a bounded channel; the
// channel is closed when the device goes away.
//
// # Drivers
//
//   - midigrid: MIDI grid controllers via gitlab.com/gomidi/midi/v2
package device
