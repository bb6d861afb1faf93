package testsupport

import (
	"path/filepath"
	"testing"

	"stillpoint/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.API.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithSubmissionEndpoint points the config at a remote submission backend.
func WithSubmissionEndpoint(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Submission.Endpoint = url
	}
}

// WithCheckpointInterval overrides the checkpoint interval in seconds.
func WithCheckpointInterval(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Session.CheckpointIntervalSeconds = seconds
	}
}
