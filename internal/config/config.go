package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Backend describes how the panel reaches the content-generation API.
type Backend struct {
	BaseURL string `toml:"base_url"`
	// RequestTimeout bounds one-shot calls (chat, image, tts, uploads), in seconds.
	RequestTimeout int `toml:"request_timeout"`
	// StartTimeout bounds job-start calls that may block on model inference, in seconds.
	StartTimeout int `toml:"start_timeout"`
	// NewsStartTimeout bounds the single-content start call, which returns the full result.
	NewsStartTimeout int `toml:"news_start_timeout"`
	// PollTimeout bounds each status poll, in seconds.
	PollTimeout int `toml:"poll_timeout"`
}

// Polling contains the per-job status cadence in milliseconds.
type Polling struct {
	SingleImageInterval int `toml:"single_image_interval"`
	CarouselInterval    int `toml:"carousel_interval"`
	AgentInterval       int `toml:"agent_interval"`
	VideoInterval       int `toml:"video_interval"`
	// MaxWait caps how long a job may be polled, in seconds. Zero polls until a terminal phase.
	MaxWait int `toml:"max_wait"`
}

// Panel contains the local control surface settings.
type Panel struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	EnvFile  string `toml:"env_file"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Device contains audio capture settings for voice input.
type Device struct {
	CaptureCommand string `toml:"capture_command"`
	SoundDir       string `toml:"sound_dir"`
	MonitorHotplug bool   `toml:"monitor_hotplug"`
}

// Instagram contains defaults for the publishing connection form. Values
// normally come from the backend's .env file and are overlaid at load time.
type Instagram struct {
	GraphVersion  string `toml:"graph_version"`
	AppID         string `toml:"fb_app_id"`
	PageID        string `toml:"fb_page_id"`
	UserID        string `toml:"ig_user_id"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Notifications configures push notifications for finished jobs.
type Notifications struct {
	// NtfyTopic is the full ntfy topic URL. Empty disables notifications.
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for Atlas.
//
// Configuration sections by subsystem:
//   - Backend: API base URL and call timeouts
//   - Polling: status cadence per job kind
//   - Panel: local HTTP/websocket bind address and token
//   - Paths: state directory and optional .env overlay
//   - Logging: log format and level
//   - Device: voice capture command and hotplug monitoring
//   - Instagram: connection form defaults
//   - Notifications: ntfy push for finished jobs
type Config struct {
	Backend   Backend   `toml:"backend"`
	Polling   Polling   `toml:"polling"`
	Panel     Panel     `toml:"panel"`
	Paths     Paths     `toml:"paths"`
	Logging   Logging   `toml:"logging"`
	Device    Device    `toml:"device"`
	Instagram Instagram `toml:"instagram"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded, environment overrides applied, and defaults filled in.
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

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("atlas.toml")
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

// EnsureDirectories creates the state directory used for logs, locks, and preferences.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "atlas.log")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "atlas.lock")
}

// PrefsPath returns the preference database location.
func (c *Config) PrefsPath() string {
	return filepath.Join(c.Paths.StateDir, "prefs.db")
}

// RequestTimeout returns the bound for one-shot backend calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeout) * time.Second
}

// StartTimeout returns the bound for job-start calls.
func (c *Config) StartTimeout() time.Duration {
	return time.Duration(c.Backend.StartTimeout) * time.Second
}

// NewsStartTimeout returns the bound for the single-content start call.
func (c *Config) NewsStartTimeout() time.Duration {
	return time.Duration(c.Backend.NewsStartTimeout) * time.Second
}

// PollTimeout returns the bound for one status poll.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Backend.PollTimeout) * time.Second
}

// MaxWait returns the optional poll ceiling; zero means unbounded.
func (c *Config) MaxWait() time.Duration {
	return time.Duration(c.Polling.MaxWait) * time.Second
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
