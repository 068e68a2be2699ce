// Package logging assembles structured slog loggers and formatting helpers used
// across Atlas.
//
// It owns the console and JSON handlers, the optional JSON log file sink, and
// the in-memory StreamHub that backs the panel's log endpoint. Context-aware
// helpers tag lines with job kinds, agent stages, and correlation IDs so a
// poll loop's output can be followed per job. NewNop provides a silent logger
// for tests and wiring code that cannot fail.
package logging
