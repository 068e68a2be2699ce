package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"atlas/internal/device"
	"atlas/internal/jobs"
	"atlas/internal/preflight"
	"atlas/internal/workflow"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func dependencyLines(deps []device.Status, colorize bool) []string {
	lines := make([]string, 0, len(deps))
	for _, dep := range deps {
		kind := statusOK
		message := "Ready"
		if dep.Command != "" {
			message = fmt.Sprintf("Ready (command: %s)", dep.Command)
		}
		if !dep.Available {
			kind = statusError
			if dep.Optional {
				kind = statusWarn
			}
			message = strings.TrimSpace(dep.Detail)
			if message == "" {
				message = "not available"
			}
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, message, colorize))
	}
	return lines
}

func readinessLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, res := range results {
		kind := statusOK
		if !res.Passed {
			kind = statusError
			if res.Optional {
				kind = statusWarn
			}
		}
		lines = append(lines, renderStatusLine(res.Name, kind, res.Detail, colorize))
	}
	return lines
}

func phaseStatusKind(phase jobs.Phase) statusKind {
	switch phase {
	case jobs.PhaseDone:
		return statusOK
	case jobs.PhaseError:
		return statusError
	case jobs.PhaseStarting, jobs.PhaseRunning:
		return statusWarn
	default:
		return statusInfo
	}
}

func microphoneLine(mic workflow.MicrophoneView, colorize bool) string {
	switch {
	case !mic.Known:
		return renderStatusLine("Microphone", statusInfo, "not monitored", colorize)
	case mic.Available:
		return renderStatusLine("Microphone", statusOK, "available", colorize)
	default:
		return renderStatusLine("Microphone", statusError, mic.Message, colorize)
	}
}

// jobRows lists every job kind with its phase, progress and the owning step.
func jobRows(snap workflow.Snapshot) [][]string {
	rows := make([][]string, 0, len(jobs.AllKinds()))
	for _, kind := range jobs.AllKinds() {
		job := snap.Job(kind)
		task := job.TaskLabel
		if job.Phase == jobs.PhaseError {
			task = job.ErrorMessage
		}
		if job.CancelRequested && job.Phase.Active() {
			task = strings.TrimSpace(task + " (cancelling)")
		}
		rows = append(rows, []string{
			string(kind),
			string(job.Phase),
			strconv.Itoa(job.Percent) + "%",
			job.Stage,
			task,
		})
	}
	return rows
}
