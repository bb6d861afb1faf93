// Command stillpoint is the CLI companion to stillpointd. Session and timer
// commands talk to the running daemon over its local HTTP API; history and
// pending commands read the shared SQLite store directly so they work while
// the daemon is down.
package main
