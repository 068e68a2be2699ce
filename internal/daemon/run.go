package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"atlas/internal/config"
	"atlas/internal/device"
	"atlas/internal/logging"
	"atlas/internal/preflight"
)

// RunOptions configures the foreground panel process.
type RunOptions struct {
	LogLevel    string
	Development bool
	// Ready, when set, receives the panel address once it is listening.
	Ready func(addr string)
}

// Run starts the panel and blocks until the context is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts RunOptions) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logHub := logging.NewStreamHub(4096)
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		Development: opts.Development,
		FilePath:    cfg.LogPath(),
		Stream:      logHub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	logReadiness(signalCtx, logger, cfg)

	d, err := New(cfg, logger, WithLogStream(logHub))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Stop()

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	if opts.Ready != nil {
		opts.Ready(d.PanelAddress())
	}

	<-signalCtx.Done()
	logger.Info("atlas panel shutting down")
	return nil
}

// PIDPath returns where a running panel records its process id.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StateDir, "atlas.pid")
}

// ReadPID returns the pid recorded by a running panel, or 0 when none is.
func ReadPID(cfg *config.Config) int {
	data, err := os.ReadFile(PIDPath(cfg))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.Event("dependency_snapshot"),
		logging.String("backend_url", cfg.Backend.BaseURL),
		logging.Bool("panel_token_present", strings.TrimSpace(cfg.Panel.Token) != ""),
		logging.Bool("hotplug_monitor", cfg.Device.MonitorHotplug),
	}
	for _, status := range device.CheckBinaries(device.Requirements(cfg)) {
		attrs = append(attrs, logging.Bool(status.Command+"_available", status.Available))
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "dependency snapshot", attrs...)
}

// logReadiness warns about failed preflight checks. The panel still starts;
// the backend may come up later.
func logReadiness(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, res := range preflight.RunAll(ctx, cfg) {
		if res.Passed {
			logger.Debug("preflight check passed", logging.String("check", res.Name), logging.String("detail", res.Detail))
			continue
		}
		if res.Optional {
			logger.Info("preflight check incomplete", logging.String("check", res.Name), logging.String("detail", res.Detail))
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", res.Name),
			logging.String("detail", res.Detail),
			logging.Hint("verify backend.base_url and that the backend is running"),
			logging.Impact("jobs will fail until the check passes"),
		)
	}
}
