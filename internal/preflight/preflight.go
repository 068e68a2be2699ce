package preflight

import (
	"context"
	"strings"

	"atlas/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
	// Optional failures are shown as warnings rather than errors.
	Optional bool `json:"optional,omitempty"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	backend, graph := CheckBackend(ctx, cfg)
	results = append(results, backend)
	if backend.Passed {
		results = append(results, graph)
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, Result{Name: "Notifications", Passed: true, Detail: cfg.Notifications.NtfyTopic, Optional: true})
	}
	return results
}
