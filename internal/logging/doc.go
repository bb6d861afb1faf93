// Package logging builds the slog loggers used across stillpoint.
//
// It provides a console handler that prefixes messages with the originating
// component, a JSON handler for machine-readable output, attribute helpers,
// and a no-op logger for tests. Components receive a logger tagged via
// WithComponent so timing corrections and recovery decisions can be traced
// back to their source.
package logging
