// Package services defines shared helpers consumed by the conversion
// pipeline and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, task numbers, and source paths for
//     logging.
//   - Structured error markers plus the Wrap helper that classify per-task
//     failures (I/O, encode, task panics) for the ledger.
package services
