// Package midigrid drives a MIDI pad controller as a grid device.
//
// Pads are addressed as notes laid out in rows of 16 (x = key % 16,
// y = key / 16), the layout used by Launchpad-style and monome-emulating
// controllers. Note on/off become button down/up events, control changes
// become encoder deltas read as 7-bit two's complement, and LED output is
// sent back as note on/off on the configured channel.
//
// A driver must be registered by importing it, for example:
//
//	import _ "gitlab.com/gomidi/midi/v2/drivers/portmididrv"
package midigrid
