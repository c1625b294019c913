// Package devconfig persists per-device bridge settings between sessions.
//
// A Record holds the OSC prefix, the destination host and port, the local
// server port and the grid rotation. Records are keyed by device serial.
//
// Two backends implement Store:
//   - FileStore keeps one YAML file per device, written atomically.
//   - SQLiteStore keeps one row per device in the device_config table.
//
// Reads fill unset fields from Defaults so a partially written file still
// yields a usable record.
package devconfig
