package engine

// Status is a point-in-time snapshot of the engine for the API and CLI.
type Status struct {
	Running          bool    `json:"running"`
	SessionActive    bool    `json:"session_active"`
	SessionID        string  `json:"session_id,omitempty"`
	Profile          string  `json:"profile"`
	TimerRunning     bool    `json:"timer_running"`
	HasTarget        bool    `json:"has_target"`
	TargetSeconds    int     `json:"target_seconds,omitempty"`
	ElapsedSeconds   int     `json:"elapsed_seconds"`
	RemainingSeconds int     `json:"remaining_seconds"`
	Multiplier       float64 `json:"multiplier"`
	PresenceSize     float64 `json:"presence_size"`
	ImmersionLevel   float64 `json:"immersion_level"`
}

// Snapshot returns the current engine state.
func (e *Engine) Snapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := Status{
		Running:          e.running,
		SessionActive:    e.sessions.Active(),
		Profile:          e.profile.Name,
		TimerRunning:     e.timer.Running(),
		ElapsedSeconds:   e.lastTick.ElapsedSeconds,
		RemainingSeconds: e.lastTick.RemainingSeconds,
		Multiplier:       e.multiplier,
		PresenceSize:     e.lastPresence.Size,
		ImmersionLevel:   e.lastPresence.ImmersionLevel,
	}
	if id, ok := e.sessions.ActiveSessionID(); ok {
		status.SessionID = id
	}
	if target, ok := e.timer.Target(); ok {
		status.HasTarget = true
		status.TargetSeconds = target
	}
	return status
}
