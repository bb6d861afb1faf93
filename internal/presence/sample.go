package presence

// BreathSample is one normalized amplitude reading from the breath sensor.
// Samples are transient; they are consumed immediately and never persisted.
type BreathSample struct {
	Amplitude   float64 `json:"amplitude"`
	TimestampMs int64   `json:"timestamp_ms"`
}
