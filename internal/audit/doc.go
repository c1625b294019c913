// Package audit keeps a per-device history of bridge sessions in SQLite:
// when a session became active, when it ended and with which counters.
package audit
