package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"atlas/internal/config"
	"atlas/internal/panelclient"
)

type commandContext struct {
	panelFlag  *string
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	// configPath is empty when defaults were used.
	configPath string
	configErr  error
}

func newCommandContext(panelFlag, configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		panelFlag:  panelFlag,
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		if exists {
			c.configPath = resolved
		}
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// panelURL prefers --panel over the configured bind address.
func (c *commandContext) panelURL() string {
	if c.panelFlag != nil {
		if value := strings.TrimSpace(*c.panelFlag); value != "" {
			return panelclient.BaseURL(value)
		}
	}
	if cfg := c.configValue(); cfg != nil {
		return panelclient.BaseURL(cfg.Panel.Bind)
	}
	return ""
}

func (c *commandContext) client() (*panelclient.Client, error) {
	cfg := c.configValue()
	if c.panelFlag == nil || strings.TrimSpace(*c.panelFlag) == "" {
		return panelclient.FromConfig(cfg)
	}
	token := ""
	if cfg != nil {
		token = cfg.Panel.Token
	}
	return panelclient.New(c.panelURL(), token)
}

func (c *commandContext) withClient(fn func(*panelclient.Client) error) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	return fn(client)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
