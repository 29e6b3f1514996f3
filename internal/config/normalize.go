package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	c.normalizeAccounts()
	if err := c.normalizePanel(); err != nil {
		return err
	}
	c.normalizeNotifications()
	return c.normalizeLogging()
}

func (c *Config) normalizeAPI() {
	c.API.BaseURL = strings.TrimSpace(c.API.BaseURL)
	if c.API.BaseURL == "" {
		if value, ok := os.LookupEnv(envAPIBaseURL); ok {
			c.API.BaseURL = strings.TrimSpace(value)
		}
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultAPIBaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	c.API.UserAgent = strings.TrimSpace(c.API.UserAgent)
	if c.API.UserAgent == "" {
		c.API.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeAccounts() {
	c.Accounts.Default = strings.TrimSpace(c.Accounts.Default)
	if c.Accounts.Default == "" {
		c.Accounts.Default = defaultAccount
	}
}

func (c *Config) normalizePanel() error {
	c.Panel.Bind = strings.TrimSpace(c.Panel.Bind)
	if c.Panel.Bind == "" {
		c.Panel.Bind = defaultPanelBind
	}
	if strings.TrimSpace(c.Panel.StateDir) == "" {
		c.Panel.StateDir = defaultStateDir
	}
	var err error
	if c.Panel.StateDir, err = expandPath(c.Panel.StateDir); err != nil {
		return fmt.Errorf("panel.state_dir: %w", err)
	}
	c.Panel.UploadsHint = strings.TrimSpace(c.Panel.UploadsHint)
	if c.Panel.UploadsHint == "" {
		c.Panel.UploadsHint = defaultUploadsHint
	}
	c.Panel.LogsHint = strings.TrimSpace(c.Panel.LogsHint)
	if c.Panel.LogsHint == "" {
		c.Panel.LogsHint = defaultLogsHint
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(envNtfyTopic); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = ""
		return nil
	}
	var err error
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
