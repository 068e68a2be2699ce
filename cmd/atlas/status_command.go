package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"atlas/internal/daemon"
	"atlas/internal/device"
	"atlas/internal/panelclient"
	"atlas/internal/preflight"
	"atlas/internal/workflow"
)

type statusReport struct {
	ConfigPath   string             `json:"config_path"`
	StateDir     string             `json:"state_dir"`
	BackendURL   string             `json:"backend_url"`
	PanelURL     string             `json:"panel_url"`
	PanelRunning bool               `json:"panel_running"`
	PanelError   string             `json:"panel_error,omitempty"`
	PID          int                `json:"pid,omitempty"`
	Dependencies []device.Status    `json:"dependencies"`
	Readiness    []preflight.Result `json:"readiness"`
	Snapshot     *workflow.Snapshot `json:"snapshot,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show panel, dependency and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := statusReport{
				ConfigPath:   ctx.configPath,
				StateDir:     cfg.Paths.StateDir,
				BackendURL:   cfg.Backend.BaseURL,
				PanelURL:     ctx.panelURL(),
				PID:          daemon.ReadPID(cfg),
				Dependencies: device.CheckBinaries(device.Requirements(cfg)),
				Readiness:    preflight.RunAll(cmd.Context(), cfg),
			}
			err = ctx.withClient(func(client *panelclient.Client) error {
				snap, err := client.State(cmd.Context())
				if err != nil {
					return err
				}
				report.Snapshot = &snap
				return nil
			})
			if err != nil {
				report.PanelError = err.Error()
			} else {
				report.PanelRunning = true
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			renderStatusReport(cmd, report)
			return nil
		},
	}
}

func renderStatusReport(cmd *cobra.Command, report statusReport) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("System Status", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if report.PanelRunning {
		message := report.PanelURL
		if report.PID > 0 {
			message = fmt.Sprintf("%s (pid %d)", report.PanelURL, report.PID)
		}
		fmt.Fprintln(stdout, renderStatusLine("Panel", statusOK, message, colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Panel", statusError, report.PanelError, colorize))
	}
	configPath := report.ConfigPath
	if configPath == "" {
		configPath = "defaults"
	}
	fmt.Fprintln(stdout, renderStatusLine("Config", statusInfo, configPath, colorize))
	fmt.Fprintln(stdout, renderStatusLine("State", statusInfo, report.StateDir, colorize))
	if report.Snapshot != nil {
		fmt.Fprintln(stdout, microphoneLine(report.Snapshot.Microphone, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, line := range dependencyLines(report.Dependencies, colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Readiness", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, line := range readinessLines(report.Readiness, colorize) {
		fmt.Fprintln(stdout, line)
	}

	snap := report.Snapshot
	if snap == nil {
		return
	}
	fmt.Fprintln(stdout)
	for _, line := range renderSectionHeader("Session", colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, renderStatusLine("Mode", statusInfo, string(snap.Mode), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Studio", statusInfo, string(snap.Step(workflow.ModeStudio)), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Video", statusInfo, string(snap.Step(workflow.ModeVideo)), colorize))
	if snap.AgentBlocking() {
		fmt.Fprintln(stdout, renderStatusLine("Navigation", statusWarn, "locked while the agent runs", colorize))
	}
	if snap.Alerts > 0 {
		fmt.Fprintln(stdout, renderStatusLine("Alerts", statusWarn, fmt.Sprintf("%d pending (atlas alerts)", snap.Alerts), colorize))
	}
	fmt.Fprintln(stdout)

	table := renderTable(
		[]string{"Job", "Phase", "Progress", "Stage", "Task"},
		jobRows(*snap),
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
	fmt.Fprintln(stdout, table)
}
