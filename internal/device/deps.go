package device

import (
	"fmt"
	"os/exec"
	"strings"

	"atlas/internal/config"
)

// Requirement defines an external command the panel relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the commands voice input needs.
func Requirements(cfg *config.Config) []Requirement {
	command := ""
	if fields := strings.Fields(cfg.Device.CaptureCommand); len(fields) > 0 {
		command = fields[0]
	}
	return []Requirement{{
		Name:        "Voice capture",
		Command:     command,
		Description: "Records microphone input for speech recognition",
		Optional:    true,
	}}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
