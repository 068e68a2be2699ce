package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"atlas/internal/config"
	"atlas/internal/device"
	"atlas/internal/gateway"
	"atlas/internal/logging"
	"atlas/internal/notifications"
	"atlas/internal/panel"
	"atlas/internal/prefs"
	"atlas/internal/services"
	"atlas/internal/workflow"
)

// Daemon owns one panel session and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	logs    *logging.StreamHub

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	prefs   *prefs.Store
	session *workflow.Session
	panel   *panel.Server
	monitor *device.Monitor
	notify  notifications.Service
	relay   context.CancelFunc
	relayWG sync.WaitGroup
	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool            `json:"running"`
	PID          int             `json:"pid"`
	PanelAddress string          `json:"panel_address"`
	LockFilePath string          `json:"lock_file"`
	PrefsPath    string          `json:"prefs_path"`
	Mode         workflow.Mode   `json:"mode,omitempty"`
	Dependencies []device.Status `json:"dependencies"`
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithLogStream exposes buffered log events through the panel.
func WithLogStream(hub *logging.StreamHub) Option {
	return func(d *Daemon) { d.logs = hub }
}

// WithNotifier replaces the configured ntfy notifier.
func WithNotifier(svc notifications.Service) Option {
	return func(d *Daemon) { d.notify = svc }
}

// New constructs a daemon. Nothing is opened until Start.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "init", "config is required", nil)
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.notify == nil {
		d.notify = notifications.NewService(cfg)
	}
	return d, nil
}

// Start acquires the lock and brings the session, panel and monitor up.
// Everything started so far is torn down again when a step fails.
func (d *Daemon) Start(ctx context.Context) (err error) {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return services.WithHint(
			services.Wrap(services.ErrBusy, "daemon", "start", "another atlas panel is already running", nil),
			"stop the other instance or point paths.state_dir elsewhere",
		)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	defer func() {
		if err != nil {
			d.teardownLocked()
		}
	}()

	store, err := prefs.Open(d.cfg)
	if err != nil {
		return fmt.Errorf("open preferences: %w", err)
	}
	d.prefs = store

	backend, err := gateway.New(gateway.ConfigFrom(d.cfg), gateway.WithLogger(d.logger))
	if err != nil {
		return err
	}
	d.session = workflow.NewSession(backend, workflow.OptionsFrom(d.cfg, d.logger))

	d.panel = panel.New(d.session, panel.Options{
		Bind:   d.cfg.Panel.Bind,
		Token:  d.cfg.Panel.Token,
		Logger: d.logger,
		Prefs:  d.prefs,
		Logs:   d.logs,
	})
	if err := d.panel.Start(ctx); err != nil {
		return err
	}

	if d.cfg.Device.MonitorHotplug {
		session := d.session
		d.monitor = device.NewMonitor(d.cfg.Device.SoundDir, d.logger, func(a device.Availability) {
			session.Store().SetMicrophone(a.Available, device.UserMessage(a.Err))
		})
		if err := d.monitor.Start(ctx); err != nil {
			return fmt.Errorf("start sound monitor: %w", err)
		}
	}

	if notifications.Enabled(d.notify) {
		relayCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		d.relay = cancel
		relay := notifications.NewRelay(d.notify, d.logger)
		store := d.session.Store()
		d.relayWG.Go(func() { relay.Run(relayCtx, store) })
	}

	d.running.Store(true)
	d.logger.Info("atlas panel started",
		logging.String("lock", d.lockPath),
		logging.String("panel", d.panel.Addr()),
		logging.Event("daemon_started"),
	)
	return nil
}

// Stop tears everything down and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.mu.Lock()
	d.teardownLocked()
	d.mu.Unlock()
	d.logger.Info("atlas panel stopped", logging.Event("daemon_stopped"))
}

func (d *Daemon) teardownLocked() {
	if d.relay != nil {
		d.relay()
		d.relayWG.Wait()
		d.relay = nil
	}
	d.monitor.Stop()
	d.monitor = nil
	d.panel.Stop()
	d.panel = nil
	if d.session != nil {
		d.session.Close()
		d.session = nil
	}
	if d.prefs != nil {
		if err := d.prefs.Close(); err != nil {
			d.logger.Warn("failed to close preferences", logging.Error(err))
		}
		d.prefs = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.Hint("remove "+d.lockPath+" if no panel is running"),
		)
	}
	d.running.Store(false)
}

// Session returns the live session, or nil when stopped.
func (d *Daemon) Session() *workflow.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// PanelAddress returns the address the panel listens on.
func (d *Daemon) PanelAddress() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.panel.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		PanelAddress: d.panel.Addr(),
		LockFilePath: d.lockPath,
		PrefsPath:    d.cfg.PrefsPath(),
		Dependencies: device.CheckBinaries(device.Requirements(d.cfg)),
	}
	if d.session != nil {
		status.Mode = d.session.Modes.Mode()
	}
	return status
}
