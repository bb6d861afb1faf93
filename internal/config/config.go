package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// API contains configuration for the local HTTP surface consumed by the
// renderer and breath sensor bridge.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Timer contains drift-corrected timer thresholds.
type Timer struct {
	TickIntervalSeconds   int `toml:"tick_interval_seconds"`
	DriftToleranceSeconds int `toml:"drift_tolerance_seconds"`
	StallThresholdSeconds int `toml:"stall_threshold_seconds"`
}

// Session contains checkpoint and recovery policy knobs.
type Session struct {
	CheckpointIntervalSeconds int `toml:"checkpoint_interval_seconds"`
	FreshnessWindowSeconds    int `toml:"freshness_window_seconds"`
	MinDurationSeconds        int `toml:"min_duration_seconds"`
	RetryQueueLimit           int `toml:"retry_queue_limit"`
}

// Submission contains configuration for the durable session backend. When no
// endpoint is configured, completed sessions are archived locally instead.
type Submission struct {
	Endpoint       string `toml:"endpoint"`
	Token          string `toml:"token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Profile describes how a breath amplitude maps onto one visual profile.
type Profile struct {
	MinSize            float64 `toml:"min_size"`
	MaxSize            float64 `toml:"max_size"`
	MultiplierMin      float64 `toml:"multiplier_min"`
	MultiplierMax      float64 `toml:"multiplier_max"`
	ImmersionThreshold float64 `toml:"immersion_threshold"`
	MaxImmersion       float64 `toml:"max_immersion"`
	SmoothingFactor    float64 `toml:"smoothing_factor"`
}

// Presence contains breath-to-presence mapping configuration.
type Presence struct {
	DefaultProfile string             `toml:"default_profile"`
	SizeCeiling    float64            `toml:"size_ceiling"`
	Profiles       map[string]Profile `toml:"profiles"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for stillpoint.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - API: local HTTP bind address and optional bearer token
//   - Timer: tick cadence and drift/stall thresholds
//   - Session: checkpoint interval, freshness window, submission policy
//   - Submission: remote session backend (optional)
//   - Presence: visual profile definitions and the shared size ceiling
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	API        API        `toml:"api"`
	Timer      Timer      `toml:"timer"`
	Session    Session    `toml:"session"`
	Submission Submission `toml:"submission"`
	Presence   Presence   `toml:"presence"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stillpoint/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The second return value is the
// resolved path and the third reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("stillpoint.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite store backing sessions.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "stillpoint.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "stillpointd.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
