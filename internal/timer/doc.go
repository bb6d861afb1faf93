// Package timer implements the drift-corrected session timer.
//
// The timer is driven by periodic ticks but never trusts their cadence:
// elapsed and remaining values are recomputed from absolute timestamps on
// every tick, with the naive tick count used only to detect and log drift.
// This is the defense against suspended hosts, throttled background timers,
// and missed ticks. Validate offers an out-of-band self-check that forces
// recomputation when the tick source has gone quiet.
package timer
