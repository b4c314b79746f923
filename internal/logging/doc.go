// Package logging assembles the structured slog loggers used across sdmeta.
//
// It owns the console (key=value) and JSON handlers, tees output to an
// optional log file, and exposes context-aware helpers so pipeline code can
// tag log lines with run IDs, task numbers, and source paths without any
// shared mutable state.
package logging
