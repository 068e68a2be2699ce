package workflow

import (
	"log/slog"

	"atlas/internal/logging"
)

// ModeController gates top-level navigation.
type ModeController struct {
	store  *Store
	agent  *AgentDriver
	logger *slog.Logger
}

// RequestModeSwitch moves the session to mode. It returns false and leaves
// the active mode unchanged while an agent run blocks navigation.
func (c *ModeController) RequestModeSwitch(mode Mode) bool {
	if !c.store.switchMode(mode) {
		c.logger.Info("mode switch refused while agent runs",
			logging.Mode(mode),
			logging.Event("mode_switch_denied"),
		)
		return false
	}
	if mode == ModeStudio && c.agent != nil {
		c.agent.Attach()
	}
	return true
}

// Mode returns the active mode.
func (c *ModeController) Mode() Mode {
	var mode Mode
	c.store.mu.Lock()
	mode = c.store.st.mode
	c.store.mu.Unlock()
	return mode
}
