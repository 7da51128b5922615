// Package logging provides structured logging for the bridge.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across all components.
//
// # Features
//
//   - JSON output (machine-parsable) or text output (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Optional log file with size-based rotation
//
// # Configuration
//
// Logging is configured from the options file:
//
//	"LOG_LEVEL":  "info"            debug, info, warn, error
//	"LOG_FORMAT": "json"            json, text
//	"LOG_FILE":   "/data/hub.log"   rotate into this file instead of stdout
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	defer logger.Close()
//	logger.Info("starting bridge", "hubs", 2)
//
// # Security
//
// Never log broker passwords.
package logging
