package config

const (
	defaultDataDir = "~/.local/share/stillpoint"
	defaultLogDir  = "~/.local/share/stillpoint/logs"
	defaultAPIBind = "127.0.0.1:7293"

	defaultTickIntervalSeconds   = 1
	defaultDriftToleranceSeconds = 2
	defaultStallThresholdSeconds = 5

	defaultCheckpointIntervalSeconds = 30
	defaultFreshnessWindowSeconds    = 120
	defaultMinDurationSeconds        = 60
	defaultRetryQueueLimit           = 10

	defaultSubmissionTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultProfileName = "sphere"

	// DefaultSizeCeiling bounds the presence size for every profile so a
	// misconfigured profile cannot drive unbounded rendering cost.
	DefaultSizeCeiling = 2000.0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Timer: Timer{
			TickIntervalSeconds:   defaultTickIntervalSeconds,
			DriftToleranceSeconds: defaultDriftToleranceSeconds,
			StallThresholdSeconds: defaultStallThresholdSeconds,
		},
		Session: Session{
			CheckpointIntervalSeconds: defaultCheckpointIntervalSeconds,
			FreshnessWindowSeconds:    defaultFreshnessWindowSeconds,
			MinDurationSeconds:        defaultMinDurationSeconds,
			RetryQueueLimit:           defaultRetryQueueLimit,
		},
		Submission: Submission{
			RequestTimeout: defaultSubmissionTimeout,
		},
		Presence: Presence{
			DefaultProfile: defaultProfileName,
			SizeCeiling:    DefaultSizeCeiling,
			Profiles:       DefaultProfiles(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DefaultProfiles returns the built-in visual profile definitions.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		"sphere": {
			MinSize:            80,
			MaxSize:            400,
			MultiplierMin:      0.5,
			MultiplierMax:      2.0,
			ImmersionThreshold: 300,
			MaxImmersion:       1200,
			SmoothingFactor:    0.85,
		},
		"lotus": {
			MinSize:            120,
			MaxSize:            520,
			MultiplierMin:      0.5,
			MultiplierMax:      1.5,
			ImmersionThreshold: 360,
			MaxImmersion:       1000,
			SmoothingFactor:    0.9,
		},
		"aurora": {
			MinSize:            60,
			MaxSize:            640,
			MultiplierMin:      0.25,
			MultiplierMax:      2.0,
			ImmersionThreshold: 280,
			MaxImmersion:       1400,
			SmoothingFactor:    0.8,
		},
	}
}
