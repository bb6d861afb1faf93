package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTimer(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateSubmission(); err != nil {
		return err
	}
	if err := c.validatePresence(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTimer() error {
	if err := ensurePositiveMap(map[string]int{
		"timer.tick_interval_seconds":   c.Timer.TickIntervalSeconds,
		"timer.drift_tolerance_seconds": c.Timer.DriftToleranceSeconds,
		"timer.stall_threshold_seconds": c.Timer.StallThresholdSeconds,
	}); err != nil {
		return err
	}
	if c.Timer.StallThresholdSeconds <= c.Timer.TickIntervalSeconds {
		return errors.New("timer.stall_threshold_seconds must exceed timer.tick_interval_seconds")
	}
	return nil
}

func (c *Config) validateSession() error {
	if err := ensurePositiveMap(map[string]int{
		"session.checkpoint_interval_seconds": c.Session.CheckpointIntervalSeconds,
		"session.freshness_window_seconds":    c.Session.FreshnessWindowSeconds,
		"session.retry_queue_limit":           c.Session.RetryQueueLimit,
	}); err != nil {
		return err
	}
	if c.Session.MinDurationSeconds < 0 {
		return errors.New("session.min_duration_seconds must not be negative")
	}
	if c.Session.FreshnessWindowSeconds < c.Session.CheckpointIntervalSeconds {
		return errors.New("session.freshness_window_seconds must be at least session.checkpoint_interval_seconds")
	}
	return nil
}

func (c *Config) validateSubmission() error {
	if c.Submission.Endpoint == "" {
		return nil
	}
	if !strings.HasPrefix(c.Submission.Endpoint, "http://") && !strings.HasPrefix(c.Submission.Endpoint, "https://") {
		return fmt.Errorf("submission.endpoint %q must be an http(s) URL", c.Submission.Endpoint)
	}
	return nil
}

func (c *Config) validatePresence() error {
	if c.Presence.SizeCeiling <= 0 {
		return errors.New("presence.size_ceiling must be positive")
	}
	if _, ok := c.Presence.Profiles[c.Presence.DefaultProfile]; !ok {
		return fmt.Errorf("presence.default_profile %q is not a defined profile", c.Presence.DefaultProfile)
	}
	for name, profile := range c.Presence.Profiles {
		if err := validateProfile(name, profile); err != nil {
			return err
		}
	}
	return nil
}

func validateProfile(name string, p Profile) error {
	if p.MinSize < 0 {
		return fmt.Errorf("presence.profiles.%s.min_size must not be negative", name)
	}
	if p.MaxSize <= p.MinSize {
		return fmt.Errorf("presence.profiles.%s.max_size must exceed min_size", name)
	}
	if p.MultiplierMin <= 0 || p.MultiplierMax < p.MultiplierMin {
		return fmt.Errorf("presence.profiles.%s multiplier range is invalid", name)
	}
	if p.MaxImmersion <= p.ImmersionThreshold {
		return fmt.Errorf("presence.profiles.%s.max_immersion must exceed immersion_threshold", name)
	}
	if p.SmoothingFactor < 0 || p.SmoothingFactor >= 1 {
		return fmt.Errorf("presence.profiles.%s.smoothing_factor must be in [0, 1)", name)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
