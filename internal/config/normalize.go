package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePresence()
	c.normalizeSubmission()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePresence() {
	if strings.TrimSpace(c.Presence.DefaultProfile) == "" {
		c.Presence.DefaultProfile = defaultProfileName
	}
	c.Presence.DefaultProfile = strings.ToLower(strings.TrimSpace(c.Presence.DefaultProfile))
	if c.Presence.SizeCeiling <= 0 {
		c.Presence.SizeCeiling = DefaultSizeCeiling
	}
	if len(c.Presence.Profiles) == 0 {
		c.Presence.Profiles = DefaultProfiles()
		return
	}
	normalized := make(map[string]Profile, len(c.Presence.Profiles))
	for name, profile := range c.Presence.Profiles {
		normalized[strings.ToLower(strings.TrimSpace(name))] = profile
	}
	c.Presence.Profiles = normalized
}

func (c *Config) normalizeSubmission() {
	c.Submission.Endpoint = strings.TrimSpace(c.Submission.Endpoint)
	c.Submission.Token = strings.TrimSpace(c.Submission.Token)
	if c.Submission.RequestTimeout <= 0 {
		c.Submission.RequestTimeout = defaultSubmissionTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
