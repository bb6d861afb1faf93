package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stillpoint/internal/config"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Timer.DriftToleranceSeconds != 2 {
		t.Fatalf("drift tolerance = %d, want 2", cfg.Timer.DriftToleranceSeconds)
	}
	if cfg.Session.FreshnessWindowSeconds != 120 {
		t.Fatalf("freshness window = %d, want 120", cfg.Session.FreshnessWindowSeconds)
	}
	if cfg.Session.MinDurationSeconds != 60 {
		t.Fatalf("min duration = %d, want 60", cfg.Session.MinDurationSeconds)
	}
	if cfg.Session.RetryQueueLimit != 10 {
		t.Fatalf("retry queue limit = %d, want 10", cfg.Session.RetryQueueLimit)
	}
	if cfg.Presence.SizeCeiling != config.DefaultSizeCeiling {
		t.Fatalf("size ceiling = %v, want %v", cfg.Presence.SizeCeiling, config.DefaultSizeCeiling)
	}
	if _, ok := cfg.Presence.Profiles[cfg.Presence.DefaultProfile]; !ok {
		t.Fatalf("default profile %q undefined", cfg.Presence.DefaultProfile)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("missing file should report exists=false")
	}
	if resolved != path {
		t.Fatalf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Session.CheckpointIntervalSeconds != 30 {
		t.Fatalf("checkpoint interval = %d, want default 30", cfg.Session.CheckpointIntervalSeconds)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[session]
checkpoint_interval_seconds = 15
min_duration_seconds = 90

[presence]
default_profile = "lotus"

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("exists should be true")
	}
	if cfg.Session.CheckpointIntervalSeconds != 15 {
		t.Fatalf("checkpoint interval = %d, want 15", cfg.Session.CheckpointIntervalSeconds)
	}
	if cfg.Session.MinDurationSeconds != 90 {
		t.Fatalf("min duration = %d, want 90", cfg.Session.MinDurationSeconds)
	}
	if cfg.Presence.DefaultProfile != "lotus" {
		t.Fatalf("default profile = %q, want lotus", cfg.Presence.DefaultProfile)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging = %+v, want json/debug", cfg.Logging)
	}
	// Untouched sections keep defaults.
	if cfg.Timer.TickIntervalSeconds != 1 {
		t.Fatalf("tick interval = %d, want default 1", cfg.Timer.TickIntervalSeconds)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "zero tick interval",
			mutate: func(c *config.Config) { c.Timer.TickIntervalSeconds = 0 },
			want:   "tick_interval",
		},
		{
			name:   "stall below tick",
			mutate: func(c *config.Config) { c.Timer.StallThresholdSeconds = 1 },
			want:   "stall_threshold",
		},
		{
			name:   "negative min duration",
			mutate: func(c *config.Config) { c.Session.MinDurationSeconds = -1 },
			want:   "min_duration",
		},
		{
			name:   "freshness below checkpoint interval",
			mutate: func(c *config.Config) { c.Session.FreshnessWindowSeconds = 10 },
			want:   "freshness_window",
		},
		{
			name:   "unknown default profile",
			mutate: func(c *config.Config) { c.Presence.DefaultProfile = "nebula" },
			want:   "default_profile",
		},
		{
			name:   "zero size ceiling",
			mutate: func(c *config.Config) { c.Presence.SizeCeiling = 0 },
			want:   "size_ceiling",
		},
		{
			name: "inverted profile sizes",
			mutate: func(c *config.Config) {
				p := c.Presence.Profiles["sphere"]
				p.MaxSize = p.MinSize
				c.Presence.Profiles["sphere"] = p
			},
			want: "max_size",
		},
		{
			name: "smoothing factor of one",
			mutate: func(c *config.Config) {
				p := c.Presence.Profiles["sphere"]
				p.SmoothingFactor = 1
				c.Presence.Profiles["sphere"] = p
			},
			want: "smoothing_factor",
		},
		{
			name:   "non-http endpoint",
			mutate: func(c *config.Config) { c.Submission.Endpoint = "ftp://example.com" },
			want:   "endpoint",
		},
		{
			name:   "bad log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("Load sample = (exists=%v, err=%v), want valid existing config", exists, err)
	}
}

func TestDatabaseAndLockPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/tmp/stillpoint-test"
	if got := cfg.DatabasePath(); got != "/tmp/stillpoint-test/stillpoint.db" {
		t.Fatalf("database path = %q", got)
	}
	if got := cfg.LockPath(); got != "/tmp/stillpoint-test/stillpointd.lock" {
		t.Fatalf("lock path = %q", got)
	}
}
