// Package config loads, normalizes, and validates stillpoint configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every knob the daemon and CLI
// need: timer thresholds, checkpoint policy, presence profiles, and the
// optional submission backend.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical profile names, and clear validation errors.
package config
