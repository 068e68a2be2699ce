package device

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"atlas/internal/logging"
)

// Availability is reported whenever the microphone comes or goes.
type Availability struct {
	Available bool
	// Err holds the classified reason when Available is false.
	Err error
}

// Monitor listens for udev sound events and re-probes the capture devices.
type Monitor struct {
	soundDir string
	logger   *slog.Logger
	onChange func(Availability)
	probe    func(string) error

	mu        sync.Mutex
	conn      *netlink.UEventConn
	quit      chan struct{}
	running   bool
	available *bool
}

// NewMonitor creates a monitor for soundDir. onChange runs on the monitor
// goroutine.
func NewMonitor(soundDir string, logger *slog.Logger, onChange func(Availability)) *Monitor {
	return &Monitor{
		soundDir: soundDir,
		logger:   logging.NewComponentLogger(logger, "sound-monitor"),
		onChange: onChange,
		probe:    Probe,
	}
}

// Start reports the current availability and begins listening for uevents.
// A missing netlink socket is not fatal; the initial probe still runs.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	m.refreshLocked("startup")

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; microphone changes will not be detected",
			logging.Error(err),
			logging.Event("netlink_connect_failed"),
			logging.Hint("ensure the panel has permission to access netlink sockets"),
			logging.Impact("hotplug detection unavailable"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true
	go m.loop(ctx, conn, m.quit)

	m.logger.Info("sound monitor started",
		logging.Event("sound_monitor_started"),
		logging.String("sound_dir", m.soundDir),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	_ = m.conn.Close()
	m.conn = nil
	m.running = false
	m.logger.Info("sound monitor stopped", logging.Event("sound_monitor_stopped"))
}

// Running reports whether the monitor is listening.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, soundMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.logger.Debug("sound uevent",
				logging.String("action", string(uevent.Action)),
				logging.String("kobj", uevent.KObj),
			)
			m.mu.Lock()
			m.refreshLocked(string(uevent.Action))
			m.mu.Unlock()
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.Event("netlink_monitor_error"),
				logging.Hint("check kernel netlink subsystem"),
				logging.Impact("microphone changes may be missed"),
			)
		}
	}
}

// soundMatcher matches SUBSYSTEM=sound add and remove events.
func soundMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "sound",
		},
	})
	return rules
}

// refreshLocked probes the devices and reports only real changes.
func (m *Monitor) refreshLocked(reason string) {
	err := m.probe(m.soundDir)
	available := err == nil
	if m.available != nil && *m.available == available {
		return
	}
	m.available = &available

	if available {
		m.logger.Info("microphone available", logging.String("reason", reason))
	} else {
		m.logger.Info("microphone unavailable",
			logging.String("reason", reason),
			logging.String("detail", UserMessage(err)),
		)
	}
	if m.onChange != nil {
		m.onChange(Availability{Available: available, Err: err})
	}
}
