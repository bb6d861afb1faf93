// Package engine coordinates the session-timing core.
//
// One mutex serializes timer ticks, breath samples, and API calls, mirroring
// the cooperative single-thread model of the original host. Startup order is
// fixed: recover an abandoned session, flush the retry queue, then accept new
// sessions. Submission is fire-and-forget; failures degrade to the retry
// queue and never surface as fatal errors.
package engine
