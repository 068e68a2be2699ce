package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// applyEnv overlays values from the optional .env file and then the process
// environment. Process variables win over the file, which wins over TOML.
func (c *Config) applyEnv() error {
	values := map[string]string{}
	if path := strings.TrimSpace(c.Paths.EnvFile); path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return fmt.Errorf("paths.env_file: %w", err)
		}
		fileValues, err := godotenv.Read(expanded)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read env file %s: %w", expanded, err)
		}
		for key, value := range fileValues {
			values[key] = value
		}
	}

	lookup := func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
		if value, ok := values[key]; ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
		return "", false
	}

	if value, ok := lookup("ATLAS_BACKEND_URL"); ok {
		c.Backend.BaseURL = value
	}
	if value, ok := lookup("ATLAS_PANEL_TOKEN"); ok {
		c.Panel.Token = value
	}
	if value, ok := lookup("ATLAS_PANEL_BIND"); ok {
		c.Panel.Bind = value
	}
	if value, ok := lookup("ATLAS_NTFY_TOPIC"); ok {
		c.Notifications.NtfyTopic = value
	}
	if value, ok := lookup("FB_APP_ID"); ok {
		c.Instagram.AppID = value
	}
	if value, ok := lookup("FB_PAGE_ID"); ok {
		c.Instagram.PageID = value
	}
	if value, ok := lookup("IG_USER_ID"); ok {
		c.Instagram.UserID = value
	}
	if value, ok := lookup("PUBLIC_BASE_URL"); ok {
		c.Instagram.PublicBaseURL = value
	}
	if value, ok := lookup("IG_GRAPH_VERSION"); ok {
		c.Instagram.GraphVersion = value
	}
	return nil
}
