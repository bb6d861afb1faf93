// Package daemon runs the stillpoint background process: single-instance
// locking, engine lifecycle, and the local HTTP API consumed by the renderer
// and breath sensor bridge.
package daemon
