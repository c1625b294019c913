// Package relay maps device events to outgoing OSC messages.
//
// Each device event variant has one fixed path suffix and argument
// signature:
//
//	button down/up       <prefix>/grid/key   x y pressed
//	encoder delta        <prefix>/enc/delta  n delta
//	encoder key down/up  <prefix>/enc/key    n pressed
//	tilt                 <prefix>/tilt       sensor x y z
//
// Session announcements use the unprefixed paths /sys/connect and
// /sys/disconnect with no arguments.
//
// Sends are fire-and-forget: a failed send is dropped and the event stream
// continues.
package relay
