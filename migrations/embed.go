// Package migrations embeds the SQLite schema for the device configuration
// store.
package migrations

import "embed"

// FS holds every *.sql migration at its root.
//
//go:embed *.sql
var FS embed.FS
