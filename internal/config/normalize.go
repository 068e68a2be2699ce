package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizePolling()
	c.normalizePanel()
	c.normalizeLogging()
	c.normalizeDevice()
	c.normalizeInstagram()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.EnvFile) != "" {
		if c.Paths.EnvFile, err = expandPath(c.Paths.EnvFile); err != nil {
			return fmt.Errorf("paths.env_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendURL
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = defaultRequestTimeout
	}
	if c.Backend.StartTimeout <= 0 {
		c.Backend.StartTimeout = defaultStartTimeout
	}
	if c.Backend.NewsStartTimeout <= 0 {
		c.Backend.NewsStartTimeout = defaultNewsStartTimeout
	}
	if c.Backend.PollTimeout <= 0 {
		c.Backend.PollTimeout = defaultPollTimeout
	}
}

func (c *Config) normalizePolling() {
	if c.Polling.SingleImageInterval == 0 {
		c.Polling.SingleImageInterval = defaultSingleImageInterval
	}
	if c.Polling.CarouselInterval == 0 {
		c.Polling.CarouselInterval = defaultCarouselInterval
	}
	if c.Polling.AgentInterval == 0 {
		c.Polling.AgentInterval = defaultAgentInterval
	}
	if c.Polling.VideoInterval == 0 {
		c.Polling.VideoInterval = defaultVideoInterval
	}
}

func (c *Config) normalizePanel() {
	c.Panel.Bind = strings.TrimSpace(c.Panel.Bind)
	c.Panel.Token = strings.TrimSpace(c.Panel.Token)
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

func (c *Config) normalizeDevice() {
	c.Device.CaptureCommand = strings.TrimSpace(c.Device.CaptureCommand)
	if c.Device.CaptureCommand == "" {
		c.Device.CaptureCommand = defaultCaptureCommand
	}
	c.Device.SoundDir = strings.TrimSpace(c.Device.SoundDir)
	if c.Device.SoundDir == "" {
		c.Device.SoundDir = defaultSoundDir
	}
}

func (c *Config) normalizeInstagram() {
	c.Instagram.GraphVersion = strings.TrimSpace(c.Instagram.GraphVersion)
	if c.Instagram.GraphVersion == "" {
		c.Instagram.GraphVersion = defaultGraphVersion
	}
	c.Instagram.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Instagram.PublicBaseURL), "/")
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}
