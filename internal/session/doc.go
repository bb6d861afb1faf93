// Package session checkpoints the in-progress meditation session and
// recovers interrupted ones.
//
// The initial record is written the moment a session starts; checkpoints
// overwrite it on a fixed interval so at most one active-session record ever
// exists. On restart, RecoverAbandoned finalizes records still inside the
// freshness window and silently discards anything older — trusting an old
// checkpoint would fabricate practice time. Sessions below the minimum
// duration are never submitted.
package session
