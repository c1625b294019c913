// Package logging provides structured logging for gridosc.
//
// It wraps log/slog with the daemon's defaults: every entry carries
// service=gridosc and the build version, and output goes to stderr unless
// configured otherwise. A supervised bridge uses stdout for its binary
// control channel, so logging there would corrupt the stream.
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stderr, stdout
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("session active", "serial", serial, "port", port)
package logging
