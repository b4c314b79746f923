// Package main hosts the sdmeta CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration and logging once,
// then hands off to the internal packages: conversion runs, metadata scans,
// single-file inspection, filename timestamp stamping, and the report
// ledger. Keep this package lean; new behaviour belongs in internal/ first.
package main
