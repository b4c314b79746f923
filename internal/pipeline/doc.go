// Package pipeline converts a tree of PNG files to JPEG or WebP, re-embeds
// their generation metadata as EXIF, and verifies each round trip.
//
// Run discovers sources, pre-extracts each file's metadata text once, then
// hands immutable Tasks to a fixed-width worker pool. Each worker owns its
// task from decode to verification; the Ledger is the only shared state.
// Every discovered file yields exactly one Result, including files that
// fail, panic, or are never dispatched because the context was cancelled.
package pipeline
