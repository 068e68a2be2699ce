package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"atlas/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory. Polling
// intervals are shortened so asynchronous tests finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.EnvFile = filepath.Join(base, ".env")
	cfgVal.Panel.Bind = "127.0.0.1:0"
	cfgVal.Device.MonitorHotplug = false
	cfgVal.Polling.SingleImageInterval = 100
	cfgVal.Polling.CarouselInterval = 100
	cfgVal.Polling.AgentInterval = 100
	cfgVal.Polling.VideoInterval = 100

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBackendURL points the gateway at a fake backend.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.BaseURL = url
	}
}

// WithPanelToken enables bearer authentication on the panel.
func WithPanelToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Panel.Token = token
	}
}

// WithCaptureCommand overrides the voice capture command line.
func WithCaptureCommand(command string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Device.CaptureCommand = command
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, arecord is stubbed. Each stub
// prints the contents of $ATLAS_STUB_OUTPUT when that variable is set.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"arecord"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nif [ -n \"$ATLAS_STUB_OUTPUT\" ]; then cat \"$ATLAS_STUB_OUTPUT\"; fi\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
