// Package control reports session lifecycle to a supervising parent
// process.
//
// A bridge is supervised when neither stdin nor stdout is an interactive
// terminal. The parent then reads framed ipc messages from the bridge's
// stdout. When a terminal is attached there is no parent: nothing is
// written to the control channel and status goes to stderr as plain text
// instead.
package control
