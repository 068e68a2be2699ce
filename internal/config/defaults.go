package config

const (
	defaultConfigPath          = "~/.config/atlas/config.toml"
	defaultStateDir            = "~/.local/share/atlas"
	defaultBackendURL          = "http://127.0.0.1:8000/api"
	defaultRequestTimeout      = 300
	defaultStartTimeout        = 300
	defaultNewsStartTimeout    = 600
	defaultPollTimeout         = 10
	defaultSingleImageInterval = 1000
	defaultCarouselInterval    = 3000
	defaultAgentInterval       = 1000
	defaultVideoInterval       = 2000
	defaultPanelBind           = "127.0.0.1:7800"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultCaptureCommand      = "arecord"
	defaultSoundDir            = "/dev/snd"
	defaultGraphVersion        = "v24.0"
	defaultNotifyTimeout       = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Backend: Backend{
			BaseURL:          defaultBackendURL,
			RequestTimeout:   defaultRequestTimeout,
			StartTimeout:     defaultStartTimeout,
			NewsStartTimeout: defaultNewsStartTimeout,
			PollTimeout:      defaultPollTimeout,
		},
		Polling: Polling{
			SingleImageInterval: defaultSingleImageInterval,
			CarouselInterval:    defaultCarouselInterval,
			AgentInterval:       defaultAgentInterval,
			VideoInterval:       defaultVideoInterval,
		},
		Panel: Panel{
			Bind: defaultPanelBind,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Device: Device{
			CaptureCommand: defaultCaptureCommand,
			SoundDir:       defaultSoundDir,
			MonitorHotplug: true,
		},
		Instagram: Instagram{
			GraphVersion: defaultGraphVersion,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
	}
}
