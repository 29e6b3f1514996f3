// Package logging assembles the structured slog loggers used across
// crazypanel.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code tags log lines
// with the stage name and a per-submission correlation ID. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
