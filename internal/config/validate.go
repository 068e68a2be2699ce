package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validatePolling(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.base_url must use http or https, got %q", c.Backend.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("backend.base_url is missing a host: %q", c.Backend.BaseURL)
	}
	return nil
}

func (c *Config) validatePolling() error {
	intervals := []struct {
		name  string
		value int
	}{
		{"polling.single_image_interval", c.Polling.SingleImageInterval},
		{"polling.carousel_interval", c.Polling.CarouselInterval},
		{"polling.agent_interval", c.Polling.AgentInterval},
		{"polling.video_interval", c.Polling.VideoInterval},
	}
	for _, interval := range intervals {
		if interval.value < 100 {
			return fmt.Errorf("%s must be at least 100 milliseconds, got %d", interval.name, interval.value)
		}
	}
	if c.Polling.MaxWait < 0 {
		return fmt.Errorf("polling.max_wait must be zero or positive, got %d", c.Polling.MaxWait)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
